// Package shell frames ThingSet text-mode exchanges against an interactive
// device console: commands go out CRLF-terminated, responses are read until
// the prompt reappears or the line goes quiet.
package shell

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrWriteTimeout = errors.New("shell: write timed out")
	ErrNoPayload    = errors.New("shell: no extractable payload")
	ErrNoListing    = errors.New("shell: no child name listing")
	ErrRejected     = errors.New("shell: request rejected")
	ErrNoSession    = errors.New("shell: no thingset session")
)

var promptRE = regexp.MustCompile(`([A-Za-z0-9_-]+):~\$ `)

// Port is the minimal transport surface the shell drives. A serial port
// satisfies it; the owner of the port keeps responsibility for closing it.
type Port interface {
	io.ReadWriter
	SetReadTimeout(time.Duration) error
	ResetInputBuffer() error
}

// Shell is one framed session over an open transport.
type Shell struct {
	port Port
	cfg  Config

	prompt        string
	lastSawPrompt bool
	mode          Mode
}

func New(port Port, cfg Config) *Shell {
	return &Shell{port: port, cfg: cfg, mode: ModeUnprobed}
}

// Prompt returns the last prompt text seen on the transport.
func (s *Shell) Prompt() string { return s.prompt }

// SawPrompt reports whether the most recent read ended on a prompt.
func (s *Shell) SawPrompt() bool { return s.lastSawPrompt }

// SendCommand writes one command line and reads until the next prompt.
// A failed write is retried once after a short pause; failing twice
// resynchronizes the prompt and reports ErrWriteTimeout. A read that ends
// without a prompt triggers a resync whose output is appended.
func (s *Shell) SendCommand(cmd string, readTimeout time.Duration) ([]byte, error) {
	if !strings.HasSuffix(cmd, "\n") && !strings.HasSuffix(cmd, "\r") {
		cmd += "\r\n"
	}
	line := []byte(s.cfg.CommandPrefix + cmd)
	log.Debug().Str("tx", strings.TrimSpace(s.cfg.CommandPrefix+cmd)).Msg("shell tx")
	if s.cfg.TxDelay > 0 {
		time.Sleep(s.cfg.TxDelay)
	}
	if _, err := s.port.Write(line); err != nil {
		time.Sleep(s.cfg.WriteRetryPause)
		if _, err = s.port.Write(line); err != nil {
			log.Debug().Err(err).Msg("shell write failed twice, resyncing")
			s.resync()
			return nil, fmt.Errorf("%w: %s", ErrWriteTimeout, strings.TrimSpace(string(line)))
		}
	}
	buf := s.readUntilPrompt(readTimeout)
	if !s.lastSawPrompt {
		if extra := s.resync(); len(extra) > 0 {
			buf = append(buf, extra...)
		}
	}
	log.Debug().Int("bytes", len(buf)).Bool("prompt", s.lastSawPrompt).Msg("shell rx")
	log.Trace().Str("data", Preview(buf, 200)).Msg("shell rx data")
	return buf, nil
}

// readUntilPrompt accumulates reads until the prompt pattern matches the
// buffer, no bytes arrive for the quiescence window, or the absolute
// timeout elapses. The prompt may arrive split across reads; matching runs
// on the accumulated buffer.
func (s *Shell) readUntilPrompt(timeout time.Duration) []byte {
	_ = s.port.SetReadTimeout(s.cfg.PollInterval)
	s.lastSawPrompt = false
	data := make([]byte, 0, 512)
	chunk := make([]byte, 4096)
	start := time.Now()
	lastRx := start
	for {
		n, err := s.port.Read(chunk)
		now := time.Now()
		if n > 0 {
			data = append(data, chunk[:n]...)
			lastRx = now
			if m := promptRE.Find(data); m != nil {
				s.prompt = string(m)
				s.lastSawPrompt = true
				break
			}
		} else if err != nil {
			break
		}
		if now.Sub(lastRx) > s.cfg.Quiescence || now.Sub(start) > timeout {
			break
		}
	}
	return data
}

// ReadFor drains whatever arrives during the window, regardless of prompts.
func (s *Shell) ReadFor(window time.Duration) []byte {
	_ = s.port.SetReadTimeout(s.cfg.PollInterval)
	data := make([]byte, 0, 256)
	chunk := make([]byte, 256)
	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		n, err := s.port.Read(chunk)
		if n > 0 {
			data = append(data, chunk[:n]...)
		} else if err != nil {
			break
		}
	}
	return data
}

// resync nudges the console with a bare CRLF and waits for a prompt so
// later commands start from a known state.
func (s *Shell) resync() []byte {
	if _, err := s.port.Write([]byte("\r\n")); err != nil {
		return nil
	}
	return s.readUntilPrompt(s.cfg.ResyncTimeout)
}

// Preview renders bytes for log lines: CR/LF escaped, output truncated.
func Preview(data []byte, limit int) string {
	txt := strings.NewReplacer("\r", "\\r", "\n", "\\n").Replace(string(data))
	if len(txt) > limit {
		return txt[:limit] + "..."
	}
	return txt
}
