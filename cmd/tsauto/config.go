package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

type options struct {
	port         string
	baud         int
	apply        bool
	exec         bool
	verbose      bool
	diag         bool
	prefix       bool
	bootWait     time.Duration
	listen       time.Duration
	probeTimeout time.Duration
	txDelay      time.Duration
	configPath   string
}

func defaultOptions() options {
	return options{
		baud:         115200,
		bootWait:     100 * time.Millisecond,
		probeTimeout: time.Second,
	}
}

func loadOptions(args []string) (options, error) {
	opts := defaultOptions()
	fs := flag.NewFlagSet("tsauto", flag.ExitOnError)
	fs.StringVar(&opts.port, "port", opts.port, "serial port (auto-discover if omitted)")
	fs.IntVar(&opts.baud, "baud", opts.baud, "baud rate")
	fs.BoolVar(&opts.apply, "apply", false, "actually write values (otherwise probe only)")
	fs.BoolVar(&opts.exec, "exec", false, "execute x* nodes where present")
	fs.BoolVar(&opts.verbose, "verbose", false, "verbose I/O logging")
	fs.BoolVar(&opts.diag, "diag", false, "extra diagnostics (ports, banner, probe outcomes)")
	fs.BoolVar(&opts.prefix, "prefix", false, "prefix all commands with 'thingset '")
	fs.DurationVar(&opts.bootWait, "boot-wait", opts.bootWait, "wait after opening the port before probing")
	fs.DurationVar(&opts.listen, "listen", 0, "listen for raw output per port before probing")
	fs.DurationVar(&opts.probeTimeout, "probe-timeout", opts.probeTimeout, "wait for each probe command")
	fs.DurationVar(&opts.txDelay, "tx-delay", 0, "delay before each transmit")
	fs.StringVar(&opts.configPath, "config", "", "TOML profile with connection defaults")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.configPath == "" {
		return opts, nil
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if err := applyProfile(&opts, opts.configPath, set); err != nil {
		return opts, err
	}
	return opts, nil
}

// profile is the TOML shape behind --config. Durations use flag syntax
// ("100ms", "2s"). Apply and exec never come from a file; writes and
// executes must be asked for on the command line each run.
type profile struct {
	Port         string `toml:"port"`
	Baud         int    `toml:"baud"`
	Prefix       bool   `toml:"prefix"`
	Verbose      bool   `toml:"verbose"`
	Diag         bool   `toml:"diag"`
	BootWait     string `toml:"boot_wait"`
	Listen       string `toml:"listen"`
	ProbeTimeout string `toml:"probe_timeout"`
	TxDelay      string `toml:"tx_delay"`
}

// applyProfile merges file values into opts. Keys the file does not define
// are left alone, and flags given explicitly on the command line win over
// the file.
func applyProfile(opts *options, path string, set map[string]bool) error {
	var p profile
	md, err := toml.DecodeFile(path, &p)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if md.IsDefined("port") && !set["port"] {
		opts.port = p.Port
	}
	if md.IsDefined("baud") && !set["baud"] {
		opts.baud = p.Baud
	}
	if md.IsDefined("prefix") && !set["prefix"] {
		opts.prefix = p.Prefix
	}
	if md.IsDefined("verbose") && !set["verbose"] {
		opts.verbose = p.Verbose
	}
	if md.IsDefined("diag") && !set["diag"] {
		opts.diag = p.Diag
	}
	for _, d := range []struct {
		key  string
		flag string
		raw  string
		dst  *time.Duration
	}{
		{"boot_wait", "boot-wait", p.BootWait, &opts.bootWait},
		{"listen", "listen", p.Listen, &opts.listen},
		{"probe_timeout", "probe-timeout", p.ProbeTimeout, &opts.probeTimeout},
		{"tx_delay", "tx-delay", p.TxDelay, &opts.txDelay},
	} {
		if !md.IsDefined(d.key) || set[d.flag] {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config %s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}
