// Command tsread opens a device console, queries one path, and prints the
// response. Exit codes: 2 when the port cannot be opened, 3 when the
// console never answers the summary probe.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/thingsetctl/internal/live"
	"github.com/danmuck/thingsetctl/internal/logging"
	"github.com/danmuck/thingsetctl/internal/payload"
	"github.com/danmuck/thingsetctl/internal/serialport"
	"github.com/danmuck/thingsetctl/internal/shell"
)

type options struct {
	port     string
	baud     int
	path     string
	timeout  time.Duration
	jsonOnly bool
	prefix   bool
	verbose  bool
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.port, "port", "", "serial port (required)")
	flag.IntVar(&opts.baud, "baud", 115200, "baud rate")
	flag.StringVar(&opts.path, "path", "Measurements/rValues", "path to query")
	flag.DurationVar(&opts.timeout, "timeout", 2*time.Second, "read timeout for each command")
	flag.BoolVar(&opts.jsonOnly, "json-only", false, "print only the JSON payload")
	flag.BoolVar(&opts.prefix, "prefix", false, "prefix protocol commands with 'thingset '")
	flag.BoolVar(&opts.verbose, "verbose", false, "verbose I/O logging")
	flag.Parse()
	return opts
}

func main() {
	logging.ConfigureRuntime()
	opts := parseFlags()
	logging.SetVerbosity(opts.verbose, false)
	os.Exit(run(opts))
}

func run(opts options) int {
	if opts.port == "" {
		fmt.Fprintln(os.Stderr, "tsread: --port is required")
		return 2
	}
	port, err := serialport.Open(opts.port, opts.baud)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: cannot open %s: %v\n", opts.port, err)
		return 2
	}
	defer port.Close()

	cfg := shell.DefaultConfig()
	cfg.ReadTimeout = opts.timeout
	sh := shell.New(port, cfg)

	// wake the console and bind it to the protocol subsystem; only the
	// protocol commands themselves carry the optional prefix
	_, _ = sh.SendCommand("", time.Second)
	_, _ = sh.SendCommand("select thingset", opts.timeout)
	time.Sleep(50 * time.Millisecond)

	out, _ := sh.SendCommand(command(opts.prefix, "?"), opts.timeout)
	if _, ok := payload.ExtractJSON(string(out)); !ok {
		fmt.Fprintln(os.Stderr, "ERROR: ThingSet shell not responding to '?'")
		return 3
	}

	q := "?" + strings.TrimLeft(strings.TrimSpace(opts.path), "/")
	out, err = sh.SendCommand(command(opts.prefix, q), opts.timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tsread: %v\n", err)
		return 1
	}
	txt := string(out)
	if opts.jsonOnly {
		if raw, ok := payload.ExtractJSON(txt); ok {
			fmt.Println(string(raw))
			return 0
		}
	}
	fmt.Println(live.CleanLine(txt))
	return 0
}

func command(prefix bool, cmd string) string {
	if prefix {
		return shell.PrefixThingSet + cmd
	}
	return cmd
}
