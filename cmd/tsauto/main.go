// Command tsauto discovers a ThingSet device on a serial console, walks its
// data tree, and exercises every writable parameter with a perturb, verify,
// restore cycle. Without --apply it only probes readability.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/danmuck/thingsetctl/internal/autotest"
	"github.com/danmuck/thingsetctl/internal/logging"
	"github.com/danmuck/thingsetctl/internal/serialport"
	"github.com/danmuck/thingsetctl/internal/shell"
	"github.com/danmuck/thingsetctl/internal/tree"
)

func main() {
	logging.ConfigureRuntime()
	opts, err := loadOptions(os.Args[1:])
	if err != nil {
		fatalf("%v", err)
	}
	logging.SetVerbosity(opts.verbose, opts.diag)

	cfg := serialport.DefaultConfig()
	cfg.Port = opts.port
	cfg.Baud = opts.baud
	cfg.BootWait = opts.bootWait
	cfg.Listen = opts.listen
	cfg.ProbeTimeout = opts.probeTimeout
	cfg.Shell.TxDelay = opts.txDelay
	if opts.prefix {
		cfg.Shell.CommandPrefix = shell.PrefixThingSet
	}

	port, sh, err := serialport.FindShell(cfg)
	if err != nil {
		switch {
		case errors.Is(err, serialport.ErrNoPorts):
			fmt.Fprintln(os.Stderr, "No serial ports found.")
		case errors.Is(err, serialport.ErrNoShell):
			fmt.Fprintln(os.Stderr, "No ThingSet shell found on available serial ports.")
			if opts.diag {
				fmt.Fprintln(os.Stderr, "Hint: re-run with --verbose for raw TX/RX logging if needed.")
			}
		default:
			fmt.Fprintf(os.Stderr, "tsauto: %v\n", err)
		}
		os.Exit(2)
	}

	nodes := tree.Discover(sh)

	run := autotest.DefaultConfig()
	run.Apply = opts.apply
	run.Exec = opts.exec
	run.ProbeTimeout = opts.probeTimeout
	sum := autotest.NewRunner(sh, run).Run(nodes)

	_ = port.Close()
	if sum.SetFailures > 0 {
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "tsauto: "+format+"\n", args...)
	os.Exit(1)
}
