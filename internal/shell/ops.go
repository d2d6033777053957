package shell

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/thingsetctl/internal/payload"
	"github.com/danmuck/thingsetctl/internal/scalar"
)

// QueryNames lists the child names under path via a null fetch. The root
// path sends the bare summary query instead. Anything but an array payload
// reports ErrNoListing so callers can fall back to a plain fetch.
func (s *Shell) QueryNames(path string) ([]string, error) {
	var q string
	if path == "" || path == "/" {
		q = "?"
	} else {
		q = "?" + trimPath(path) + " null"
	}
	out, err := s.SendCommand(q, s.cfg.ReadTimeout)
	if err != nil {
		return nil, err
	}
	raw, ok := payload.ExtractJSON(string(out))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoListing, q)
	}
	names, ok := payload.Strings(raw)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoListing, q)
	}
	return names, nil
}

// Fetch queries a path and returns whatever payload the response carries.
func (s *Shell) Fetch(path string) (payload.Result, error) {
	out, err := s.SendCommand("?"+trimPath(path), s.cfg.ReadTimeout)
	if err != nil {
		return payload.Result{}, err
	}
	res, ok := payload.Extract(string(out))
	if !ok {
		return payload.Result{}, fmt.Errorf("%w: %s", ErrNoPayload, path)
	}
	return res, nil
}

// GetValue reads one leaf as wire text: the first member value of a keyed
// payload in document order, else the scalar token of the status line.
func (s *Shell) GetValue(path string, timeout time.Duration) (string, error) {
	out, err := s.SendCommand("?"+trimPath(path), timeout)
	if err != nil {
		return "", err
	}
	txt := string(out)
	if raw, ok := payload.ExtractJSON(txt); ok {
		if v, ok := payload.FirstValueText(raw); ok {
			return v, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNoPayload, path)
	}
	if tok, ok := payload.ExtractScalar(txt); ok {
		return tok, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoPayload, path)
}

// SetValue writes one leaf through an update request addressed to its
// parent group, with the payload quotes escaped for the console parser.
func (s *Shell) SetValue(path, token string, timeout time.Duration) error {
	p := trimPath(path)
	parent, leaf := "", p
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		parent, leaf = p[:i], p[i+1:]
	}
	body := strings.ReplaceAll(updateBody(leaf, token), `"`, `\"`)
	cmd := strings.TrimSpace("=" + parent + " " + body)
	out, err := s.SendCommand(cmd, timeout)
	if err != nil {
		return err
	}
	if !payload.Accepted(string(out)) {
		return fmt.Errorf("%w: %s", ErrRejected, cmd)
	}
	return nil
}

// Exec triggers an executable node.
func (s *Shell) Exec(path string, timeout time.Duration) error {
	arg := trimPath(path)
	out, err := s.SendCommand("!"+arg, timeout)
	if err != nil {
		return err
	}
	if !payload.Accepted(string(out)) {
		return fmt.Errorf("%w: !%s", ErrRejected, arg)
	}
	return nil
}

// updateBody renders the single-member update object. The token is typed
// through the scalar codec so hex integers normalize to decimal and text
// gets proper JSON quoting; float tokens keep their source digits.
func updateBody(leaf, token string) string {
	v := scalar.Parse(token)
	var lit string
	switch v.Kind {
	case scalar.KindBool, scalar.KindInt:
		lit = scalar.FormatForWrite(v)
	case scalar.KindFloat:
		t := strings.TrimSpace(token)
		if json.Valid([]byte(t)) {
			lit = t
		} else {
			lit = strconv.FormatFloat(v.Float, 'g', -1, 64)
		}
	default:
		b, err := json.Marshal(v.Str)
		if err != nil {
			b = []byte(`""`)
		}
		lit = string(b)
	}
	name, err := json.Marshal(leaf)
	if err != nil {
		name = []byte(`""`)
	}
	return "{" + string(name) + ":" + lit + "}"
}

func trimPath(path string) string {
	return strings.TrimPrefix(path, "/")
}
