// Package live drives the device's periodic reporting subset and turns the
// raw console stream into clean report lines.
package live

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strings"
	"time"
)

// ReportPath is the reporting subset every report command addresses.
const ReportPath = "_Reporting/mLive"

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// CleanLine strips ANSI escapes and carriage returns and trims the rest.
func CleanLine(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(ansiRE.ReplaceAllString(s, ""), "\r", ""))
}

// ReportLine reports whether a cleaned console line looks like a live
// report rather than shell echo or prompt noise.
func ReportLine(s string) bool {
	return strings.Contains(s, "mLive") || strings.HasPrefix(s, ":85") || strings.HasPrefix(s, "#mLive")
}

// EnableCommand builds the update that turns periodic reporting on.
// The period is sent in whole seconds with a floor of one.
func EnableCommand(period time.Duration) string {
	secs := int(math.Round(period.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf(`=%s {"sEnable":true,"sPeriod_s":%d }`, ReportPath, secs)
}

// DisableCommand builds the update that turns periodic reporting off.
func DisableCommand() string {
	return fmt.Sprintf(`=%s {"sEnable":false}`, ReportPath)
}

// Config controls one streaming session.
type Config struct {
	Raw bool
	Out io.Writer
}

// Stream copies report lines from the console to the output until the
// context ends or the port closes. Lines arrive in arbitrary chunks, so
// output only happens on complete newline-terminated lines.
func Stream(ctx context.Context, port io.Reader, cfg Config) error {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	var buf []byte
	chunk := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := port.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				i := bytes.IndexByte(buf, '\n')
				if i < 0 {
					break
				}
				line := string(buf[:i])
				buf = buf[i+1:]
				text := CleanLine(line)
				if text == "" {
					continue
				}
				if cfg.Raw || ReportLine(text) {
					fmt.Fprintln(out, text)
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if n == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}
}
