// Command tslive enables the device's periodic live reports and streams
// them to stdout until interrupted. Reporting is switched back off on the
// way out.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/thingsetctl/internal/live"
	"github.com/danmuck/thingsetctl/internal/logging"
	"github.com/danmuck/thingsetctl/internal/serialport"
	"github.com/danmuck/thingsetctl/internal/shell"
)

type options struct {
	port    string
	baud    int
	period  time.Duration
	timeout time.Duration
	raw     bool
	verbose bool
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.port, "port", "", "serial port (required)")
	flag.IntVar(&opts.baud, "baud", 115200, "baud rate")
	flag.DurationVar(&opts.period, "period", time.Second, "live report period")
	flag.DurationVar(&opts.timeout, "timeout", 2*time.Second, "timeout for each setup command")
	flag.BoolVar(&opts.raw, "raw", false, "print all incoming lines (no filtering)")
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
		fmt.Fprintln(os.Stderr, "tslive: --port is required")
		return 2
	}
	port, err := serialport.Open(opts.port, opts.baud)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: cannot open %s: %v\n", opts.port, err)
		return 2
	}
	defer port.Close()

	sh := shell.New(port, shell.DefaultConfig())

	// wake the console, bind the subsystem, switch reporting on
	_, _ = sh.SendCommand("", time.Second)
	_, _ = sh.SendCommand("select thingset", opts.timeout)
	_, _ = sh.SendCommand(live.EnableCommand(opts.period), opts.timeout)
	state, _ := sh.SendCommand("?"+live.ReportPath+"/sEnable", opts.timeout)
	if txt := live.CleanLine(string(state)); txt != "" {
		fmt.Println(txt)
	}
	fmt.Println("Live reporting enabled. Press Ctrl-C to stop.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	streamErr := live.Stream(ctx, port, live.Config{Raw: opts.raw})

	// switch reporting off before the port closes
	_, _ = sh.SendCommand(live.DisableCommand(), time.Second)

	if streamErr != nil && !errors.Is(streamErr, context.Canceled) {
		fmt.Fprintf(os.Stderr, "tslive: %v\n", streamErr)
		return 1
	}
	return 0
}
