package shell

import "time"

// PrefixThingSet is the alternate command mode: every protocol command is
// routed through the shell's thingset subcommand.
const PrefixThingSet = "thingset "

// Config defines framing and pacing defaults for one shell session.
type Config struct {
	CommandPrefix   string
	ReadTimeout     time.Duration
	PollInterval    time.Duration
	Quiescence      time.Duration
	ResyncTimeout   time.Duration
	WriteRetryPause time.Duration
	TxDelay         time.Duration
}

func DefaultConfig() Config {
	return Config{
		ReadTimeout:     2 * time.Second,
		PollInterval:    50 * time.Millisecond,
		Quiescence:      200 * time.Millisecond,
		ResyncTimeout:   time.Second,
		WriteRetryPause: 100 * time.Millisecond,
	}
}
