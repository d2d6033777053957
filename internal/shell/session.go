package shell

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/thingsetctl/internal/payload"
)

// Mode is the negotiated command mode of a session.
type Mode int

const (
	ModeUnprobed Mode = iota
	ModePlain
	ModePrefixed
	ModeFailed
)

func (m Mode) String() string {
	switch m {
	case ModePlain:
		return "plain"
	case ModePrefixed:
		return "prefixed"
	case ModeFailed:
		return "failed"
	default:
		return "unprobed"
	}
}

const nudgeTimeout = 500 * time.Millisecond

// EnterSession negotiates the command mode. It nudges the console until a
// prompt appears, probes with plain commands, then retries the whole probe
// ladder with the "thingset " prefix. Whichever prefix succeeds stays
// active for the session; total failure restores the previous prefix and
// reports ErrNoSession.
func (s *Shell) EnterSession(probeTimeout time.Duration) error {
	_ = s.port.ResetInputBuffer()
	for i := 0; i < 3; i++ {
		_, _ = s.port.Write([]byte("\r\n"))
		s.readUntilPrompt(nudgeTimeout)
		if s.prompt != "" {
			break
		}
	}
	if s.probe(probeTimeout) {
		s.mode = s.modeForPrefix()
		log.Debug().Stringer("mode", s.mode).Str("prompt", s.prompt).Msg("session established")
		return nil
	}
	oldPrefix := s.cfg.CommandPrefix
	s.cfg.CommandPrefix = PrefixThingSet
	log.Debug().Msg("switching to 'thingset ' command prefix")
	if s.probe(probeTimeout) {
		s.mode = ModePrefixed
		log.Debug().Stringer("mode", s.mode).Str("prompt", s.prompt).Msg("session established")
		return nil
	}
	s.cfg.CommandPrefix = oldPrefix
	s.mode = ModeFailed
	return ErrNoSession
}

// Mode returns the session's negotiated command mode.
func (s *Shell) Mode() Mode { return s.mode }

// probe tries the neutral summary query, a shell listing, and an explicit
// subsystem select followed by the summary query again. Any probe that
// yields a structured payload proves the mode works.
func (s *Shell) probe(timeout time.Duration) bool {
	if out, err := s.SendCommand("?", timeout); err == nil {
		if _, ok := payload.ExtractJSON(string(out)); ok {
			return true
		}
	}
	if out, err := s.SendCommand("ls /", timeout); err == nil {
		if _, ok := payload.ExtractJSON(string(out)); ok {
			return true
		}
	}
	_, _ = s.SendCommand("select thingset", timeout)
	out, err := s.SendCommand("?", timeout)
	if err != nil {
		return false
	}
	_, ok := payload.ExtractJSON(string(out))
	return ok
}

func (s *Shell) modeForPrefix() Mode {
	if strings.TrimSpace(s.cfg.CommandPrefix) == "" {
		return ModePlain
	}
	return ModePrefixed
}
