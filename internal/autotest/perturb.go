package autotest

import (
	"math"
	"strings"

	"github.com/danmuck/thingsetctl/internal/scalar"
)

// magnitudeHints marks parameter names that usually hold magnitudes.
// Perturbations push those away from zero; a negative offset stays
// negative.
var magnitudeHints = []string{"duty", "freq", "hz", "ms", "gain", "offset", "phase"}

// candidates picks the values to write for one leaf: booleans flip,
// integers step by one, floats move five percent (or to 0.1 from zero).
// Text parameters are never auto-tested.
func candidates(v scalar.Value, name string) []scalar.Value {
	switch v.Kind {
	case scalar.KindBool:
		return []scalar.Value{{Kind: scalar.KindBool, Bool: !v.Bool}}
	case scalar.KindInt:
		if v.Int == 0 {
			return []scalar.Value{{Kind: scalar.KindInt, Int: 1}}
		}
		return []scalar.Value{{Kind: scalar.KindInt, Int: v.Int + 1}}
	case scalar.KindFloat:
		cur := v.Float
		if math.Abs(cur) < 1e-9 {
			return []scalar.Value{{Kind: scalar.KindFloat, Float: 0.1}}
		}
		delta := 0.05 * math.Abs(cur)
		next := cur + delta
		if isMagnitude(name) && cur < 0 {
			next = cur - delta
		}
		return []scalar.Value{{Kind: scalar.KindFloat, Float: next}}
	}
	return nil
}

func isMagnitude(name string) bool {
	n := strings.ToLower(name)
	for _, hint := range magnitudeHints {
		if strings.Contains(n, hint) {
			return true
		}
	}
	return false
}
