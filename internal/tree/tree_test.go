package tree

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/danmuck/thingsetctl/internal/payload"
	"github.com/danmuck/thingsetctl/internal/testutil/testlog"
)

type fakeQuerier struct {
	names   map[string][]string
	fetches map[string]payload.Result
	asked   map[string]int
}

func (f *fakeQuerier) QueryNames(path string) ([]string, error) {
	if f.asked == nil {
		f.asked = make(map[string]int)
	}
	f.asked[path]++
	if ns, ok := f.names[path]; ok {
		return ns, nil
	}
	return nil, errors.New("no listing")
}

func (f *fakeQuerier) Fetch(path string) (payload.Result, error) {
	if r, ok := f.fetches[path]; ok {
		return r, nil
	}
	return payload.Result{}, errors.New("no payload")
}

func jsonResult(s string) payload.Result {
	return payload.Result{JSON: json.RawMessage(s)}
}

func checkNodes(t *testing.T, got, want []Node) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d nodes %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("node %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDiscoverKeepsSubtreeOrder(t *testing.T) {
	testlog.Start(t)
	q := &fakeQuerier{names: map[string][]string{
		"/":              {"Measurements", "Config"},
		"/Measurements":  {"rVBus", "rIOut"},
		"/Config":        {"wMode", "Limits", "sGain"},
		"/Config/Limits": {"wMax"},
	}}
	got := Discover(q)
	checkNodes(t, got, []Node{
		{Path: "/Measurements", Name: "Measurements", IsGroup: true},
		{Path: "/Measurements/rVBus", Name: "rVBus", Kind: KindReadOnly},
		{Path: "/Measurements/rIOut", Name: "rIOut", Kind: KindReadOnly},
		{Path: "/Config", Name: "Config", IsGroup: true},
		{Path: "/Config/wMode", Name: "wMode", Kind: KindWritable},
		{Path: "/Config/Limits", Name: "Limits", IsGroup: true},
		{Path: "/Config/Limits/wMax", Name: "wMax", Kind: KindWritable},
		{Path: "/Config/sGain", Name: "sGain", Kind: KindStored},
	})
}

func TestDiscoverObjectFallback(t *testing.T) {
	testlog.Start(t)
	q := &fakeQuerier{
		names: map[string][]string{"/": {"Status"}},
		fetches: map[string]payload.Result{
			"/Status": jsonResult(`{"rTemp":25.5,"Inner":{"rX":1}}`),
		},
	}
	got := Discover(q)
	checkNodes(t, got, []Node{
		{Path: "/Status", Name: "Status", IsGroup: true},
		{Path: "/Status/rTemp", Name: "rTemp", Kind: KindReadOnly},
		{Path: "/Status/Inner", Name: "Inner"},
	})
}

func TestDiscoverListFallback(t *testing.T) {
	testlog.Start(t)
	q := &fakeQuerier{
		names: map[string][]string{"/": {"Records"}},
		fetches: map[string]payload.Result{
			"/Records": jsonResult(`[10,20]`),
		},
	}
	got := Discover(q)
	checkNodes(t, got, []Node{
		{Path: "/Records", Name: "Records", IsGroup: true},
		{Path: "/Records/0", Name: "0"},
		{Path: "/Records/1", Name: "1"},
	})
}

func TestDiscoverScalarLeafKeepsMarker(t *testing.T) {
	testlog.Start(t)
	q := &fakeQuerier{
		names:   map[string][]string{"/": {"wTop"}},
		fetches: map[string]payload.Result{"/wTop": {Token: "1"}},
	}
	got := Discover(q)
	checkNodes(t, got, []Node{
		{Path: "/wTop", Name: "wTop", Kind: KindWritable},
	})
}

func TestDiscoverRootListingFallback(t *testing.T) {
	testlog.Start(t)
	q := &fakeQuerier{
		fetches: map[string]payload.Result{
			"/":      jsonResult(`{"wOnly":true}`),
			"/wOnly": {Token: "true"},
		},
	}
	got := Discover(q)
	checkNodes(t, got, []Node{
		{Path: "/wOnly", Name: "wOnly", Kind: KindWritable},
	})
}

func TestDiscoverVisitsOnce(t *testing.T) {
	testlog.Start(t)
	q := &fakeQuerier{
		names:   map[string][]string{"/": {"Dup", "Dup"}},
		fetches: map[string]payload.Result{"/Dup": {Token: "7"}},
	}
	got := Discover(q)
	checkNodes(t, got, []Node{{Path: "/Dup", Name: "Dup"}})
	if q.asked["/Dup"] != 1 {
		t.Fatalf("path listed %d times, want 1", q.asked["/Dup"])
	}
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	a := Node{Path: "/a", Name: "a", IsGroup: true}
	b := Node{Path: "/a/wX", Name: "wX", Kind: KindWritable}
	got := dedupe([]Node{a, b, a})
	checkNodes(t, got, []Node{a, b})
}

func TestKindClassification(t *testing.T) {
	cases := []struct {
		name string
		kind Kind
	}{
		{"wMode", KindWritable},
		{"sGain", KindStored},
		{"rVBus", KindReadOnly},
		{"xSave", KindExec},
		{"Config", KindNone},
		{"", KindNone},
	}
	for _, tc := range cases {
		if got := KindOf(tc.name); got != tc.kind {
			t.Errorf("KindOf(%q) = %v, want %v", tc.name, got, tc.kind)
		}
	}
	w := Node{Name: "sGain", Kind: KindStored}
	if !w.Writable() || w.Executable() {
		t.Fatalf("stored leaf should be writable only: %+v", w)
	}
	g := Node{Name: "Config", IsGroup: true, Kind: KindNone}
	if g.Writable() || g.Executable() {
		t.Fatalf("groups are never writable or executable: %+v", g)
	}
	x := Node{Name: "xSave", Kind: KindExec}
	if x.Writable() || !x.Executable() {
		t.Fatalf("exec leaf misclassified: %+v", x)
	}
}

func TestJoin(t *testing.T) {
	cases := []struct {
		parent, name, want string
	}{
		{"/", "X", "/X"},
		{"/a", "b", "/a/b"},
		{"/a/", "b", "/a/b"},
	}
	for _, tc := range cases {
		if got := Join(tc.parent, tc.name); got != tc.want {
			t.Errorf("Join(%q, %q) = %q, want %q", tc.parent, tc.name, got, tc.want)
		}
	}
}
