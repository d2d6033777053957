package shell

import (
	"errors"
	"testing"
	"time"

	"github.com/danmuck/thingsetctl/internal/testutil/testlog"
)

func newSessionShell(handler func(string) []byte) (*Shell, *fakePort) {
	p := &fakePort{handler: handler}
	return New(p, testConfig()), p
}

func respond(body string) func(string) []byte {
	return func(string) []byte { return []byte(body + "\r\n" + prompt) }
}

func TestQueryNamesRoot(t *testing.T) {
	testlog.Start(t)
	s, p := newSessionShell(respond(`:85 ["Measurements","Command","Config"]`))
	names, err := s.QueryNames("/")
	if err != nil {
		t.Fatalf("query names: %v", err)
	}
	if p.writes[0] != "?\r\n" {
		t.Fatalf("root listing sent %q", p.writes[0])
	}
	want := []string{"Measurements", "Command", "Config"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestQueryNamesChildUsesNullFetch(t *testing.T) {
	testlog.Start(t)
	s, p := newSessionShell(respond(`:85 ["wMode","wArm"]`))
	if _, err := s.QueryNames("/Config"); err != nil {
		t.Fatalf("query names: %v", err)
	}
	if p.writes[0] != "?Config null\r\n" {
		t.Fatalf("child listing sent %q", p.writes[0])
	}
}

func TestQueryNamesObjectPayload(t *testing.T) {
	testlog.Start(t)
	s, _ := newSessionShell(respond(`:85 {"wMode":0}`))
	if _, err := s.QueryNames("/Config"); !errors.Is(err, ErrNoListing) {
		t.Fatalf("expected ErrNoListing, got %v", err)
	}
}

func TestFetchScalarToken(t *testing.T) {
	testlog.Start(t)
	s, p := newSessionShell(respond(":85 12.90"))
	res, err := s.Fetch("/Command/wVdRef")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if p.writes[0] != "?Command/wVdRef\r\n" {
		t.Fatalf("fetch sent %q", p.writes[0])
	}
	if res.IsJSON() || res.Token != "12.90" {
		t.Fatalf("got %+v", res)
	}
}

func TestFetchNoPayload(t *testing.T) {
	testlog.Start(t)
	s, _ := newSessionShell(promptOnly)
	if _, err := s.Fetch("/Nothing"); !errors.Is(err, ErrNoPayload) {
		t.Fatalf("expected ErrNoPayload, got %v", err)
	}
}

func TestGetValueFirstMember(t *testing.T) {
	testlog.Start(t)
	s, _ := newSessionShell(respond(`:85 {"wMode":0,"wArm":false}`))
	v, err := s.GetValue("/Config/Mode/wMode", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("get value: %v", err)
	}
	if v != "0" {
		t.Fatalf("got %q, want first member value", v)
	}
}

func TestGetValueKeepsFloatDigits(t *testing.T) {
	testlog.Start(t)
	s, _ := newSessionShell(respond(`:85 {"sGain":2.50}`))
	v, err := s.GetValue("/Control/sGain", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("get value: %v", err)
	}
	if v != "2.50" {
		t.Fatalf("got %q, want the device's own digits", v)
	}
}

func TestGetValueScalarFallback(t *testing.T) {
	testlog.Start(t)
	s, _ := newSessionShell(respond(":85 12.90"))
	v, err := s.GetValue("/Command/wVdRef", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("get value: %v", err)
	}
	if v != "12.90" {
		t.Fatalf("got %q", v)
	}
}

func TestGetValueNoPayload(t *testing.T) {
	testlog.Start(t)
	s, _ := newSessionShell(promptOnly)
	if _, err := s.GetValue("/Missing", 50*time.Millisecond); !errors.Is(err, ErrNoPayload) {
		t.Fatalf("expected ErrNoPayload, got %v", err)
	}
}

func TestSetValueWireFormat(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		path, token, want string
	}{
		{"/Config/Mode/wMode", "1", `=Config/Mode {\"wMode\":1}`},
		{"/wTrig", "true", `= {\"wTrig\":true}`},
		{"/Control/sGain", "2.50", `=Control {\"sGain\":2.50}`},
		{"/Control/wRaw", "0x1A", `=Control {\"wRaw\":26}`},
		{"/Info/sName", "fast mode", `=Info {\"sName\":\"fast mode\"}`},
	}
	for _, tc := range cases {
		s, p := newSessionShell(respond(":84 Changed."))
		if err := s.SetValue(tc.path, tc.token, 50*time.Millisecond); err != nil {
			t.Fatalf("set %s: %v", tc.path, err)
		}
		if got := p.writes[0]; got != tc.want+"\r\n" {
			t.Errorf("set %s %q wrote %q, want %q", tc.path, tc.token, got, tc.want)
		}
	}
}

func TestSetValueRejected(t *testing.T) {
	testlog.Start(t)
	s, _ := newSessionShell(respond(":A3 Forbidden."))
	err := s.SetValue("/Config/wMode", "1", 50*time.Millisecond)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestSetValueRejectsMixedStatus(t *testing.T) {
	testlog.Start(t)
	// A forbidden marker anywhere poisons an otherwise positive status.
	s, _ := newSessionShell(respond(":84 Changed. A3"))
	err := s.SetValue("/Config/wMode", "1", 50*time.Millisecond)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestExec(t *testing.T) {
	testlog.Start(t)
	s, p := newSessionShell(respond(":84 Changed."))
	if err := s.Exec("/Command/xTrigger", 50*time.Millisecond); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if p.writes[0] != "!Command/xTrigger\r\n" {
		t.Fatalf("exec sent %q", p.writes[0])
	}
}

func TestExecRejected(t *testing.T) {
	testlog.Start(t)
	s, _ := newSessionShell(promptOnly)
	if err := s.Exec("/Command/xTrigger", 50*time.Millisecond); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}
