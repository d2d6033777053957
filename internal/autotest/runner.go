// Package autotest exercises the writable surface of a discovered device
// tree: read each parameter, write a perturbed value, verify the readback,
// then restore the original. Without apply mode it only probes readability.
package autotest

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/thingsetctl/internal/scalar"
	"github.com/danmuck/thingsetctl/internal/tree"
)

// Device is the slice of a session the exerciser needs.
type Device interface {
	GetValue(path string, timeout time.Duration) (string, error)
	SetValue(path, token string, timeout time.Duration) error
	Exec(path string, timeout time.Duration) error
}

// Config controls one exercise run.
type Config struct {
	Apply        bool
	Exec         bool
	ProbeTimeout time.Duration
	Out          io.Writer
}

func DefaultConfig() Config {
	return Config{
		ProbeTimeout: time.Second,
		Out:          os.Stdout,
	}
}

// Result records the outcome for one writable node.
type Result struct {
	Path    string
	Success bool
	Note    string
}

// Summary is the outcome of a whole run. SetFailures counts update
// requests the device rejected outright, which the CLI maps to a
// non-zero exit.
type Summary struct {
	Results     []Result
	SetFailures int
}

// Runner drives the exercise loop over one device session.
type Runner struct {
	dev         Device
	cfg         Config
	out         io.Writer
	setFailures int
}

func NewRunner(dev Device, cfg Config) *Runner {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = time.Second
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	return &Runner{dev: dev, cfg: cfg, out: out}
}

// Run splits the discovered nodes by access class, exercises every
// writable leaf, triggers executables when enabled, and prints the
// summary table.
func (r *Runner) Run(nodes []tree.Node) Summary {
	var writable, execs []tree.Node
	for _, n := range nodes {
		switch {
		case n.Writable():
			writable = append(writable, n)
		case n.Executable():
			execs = append(execs, n)
		}
	}
	fmt.Fprintf(r.out, "Discovered %d nodes: %d writable, %d exec\n", len(nodes), len(writable), len(execs))
	log.Debug().Int("nodes", len(nodes)).Int("writable", len(writable)).Int("exec", len(execs)).Msg("starting exercise run")

	r.setFailures = 0
	var sum Summary
	for _, n := range writable {
		sum.Results = append(sum.Results, r.exercise(n))
	}

	if r.cfg.Exec && len(execs) > 0 {
		fmt.Fprintln(r.out, "\nExecuting exec nodes (x*):")
		for _, n := range execs {
			status := "OK"
			if err := r.dev.Exec(n.Path, r.cfg.ProbeTimeout); err != nil {
				status = "ERR"
			}
			fmt.Fprintf(r.out, "- exec %s: %s\n", n.Path, status)
		}
	}

	printSummary(r.out, sum.Results)
	sum.SetFailures = r.setFailures
	return sum
}

// exercise probes one writable leaf and, in apply mode, pushes a perturbed
// value through a write/readback/compare cycle before restoring it.
func (r *Runner) exercise(n tree.Node) Result {
	read, err := r.dev.GetValue(n.Path, r.cfg.ProbeTimeout)
	if err != nil {
		fmt.Fprintf(r.out, "[WARN] Cannot read %s\n", n.Path)
		return Result{Path: n.Path, Note: "unreadable"}
	}
	cur := scalar.Parse(read)
	// Precision comes from the device's own response text, not the
	// parsed value.
	decimals := scalar.CountDecimals(read)
	fmt.Fprintf(r.out, "- %s => %s (%s)\n", n.Path, scalar.FormatForWrite(cur), cur.Kind)

	if !r.cfg.Apply {
		return Result{Path: n.Path, Note: "skipped (--apply missing)"}
	}
	tests := candidates(cur, n.Name)
	if len(tests) == 0 {
		return Result{Path: n.Path, Note: "no test value"}
	}

	ok := false
	for _, tv := range tests {
		expected := tv
		if tv.Kind == scalar.KindFloat {
			expected.Float = scalar.Quantize(tv.Float, decimals)
			expected.Precision = decimals
		}
		token := scalar.FormatForWrite(expected)
		if err := r.dev.SetValue(n.Path, token, r.cfg.ProbeTimeout); err != nil {
			fmt.Fprintf(r.out, "  [ERR] set %s %s failed\n", n.Path, token)
			r.setFailures++
			continue
		}
		back, rerr := r.dev.GetValue(n.Path, r.cfg.ProbeTimeout)
		fmt.Fprintf(r.out, "  set -> %s\n", back)
		if rerr != nil {
			continue
		}
		if scalar.ApproxEqual(expected, scalar.Parse(back), decimals) {
			ok = true
		}
	}

	r.restore(n, cur, read)
	if ok {
		return Result{Path: n.Path, Success: true}
	}
	return Result{Path: n.Path, Note: "mismatch or set failed"}
}

// restore writes the original value back. Floats reuse the device's own
// token text when it carried decimals.
func (r *Runner) restore(n tree.Node, cur scalar.Value, read string) {
	var orig string
	if cur.Kind == scalar.KindFloat && scalar.CountDecimals(read) > 0 {
		orig = strings.Fields(read)[0]
	} else {
		orig = scalar.FormatForWrite(cur)
	}
	if err := r.dev.SetValue(n.Path, orig, r.cfg.ProbeTimeout); err != nil {
		fmt.Fprintf(r.out, "  [WARN] restore of %s to %s may have failed\n", n.Path, orig)
		log.Warn().Err(err).Str("path", n.Path).Str("value", orig).Msg("restore write rejected")
	}
}
