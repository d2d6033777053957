// Command dtspatch switches a board devicetree's console from the USB CDC
// UART to the STLink UART so shell access survives without the USB cable.
// The patch is idempotent.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

const (
	defaultDTS = "zephyr/boards/owntech/spin/spin.dts"
	searchStr  = "zephyr,console = &cdc_acm_uart0;"
	replaceStr = "zephyr,console = &lpuart1;"
)

type outcome int

const (
	outcomeAlready outcome = iota
	outcomePatched
	outcomeNotFound
)

// patch rewrites the console chosen-node line. Files already pointing at
// the STLink UART come back unchanged.
func patch(contents string) (string, outcome) {
	if strings.Contains(contents, replaceStr) {
		return contents, outcomeAlready
	}
	if strings.Contains(contents, searchStr) {
		return strings.ReplaceAll(contents, searchStr, replaceStr), outcomePatched
	}
	return contents, outcomeNotFound
}

func main() {
	dtsPath := flag.String("dts", defaultDTS, "devicetree file to patch")
	flag.Parse()

	data, err := os.ReadFile(*dtsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dtspatch: %v\n", err)
		os.Exit(1)
	}
	patched, result := patch(string(data))
	switch result {
	case outcomeAlready:
		fmt.Printf("Console already set for STLink in '%s'.\n", *dtsPath)
	case outcomePatched:
		mode := os.FileMode(0o644)
		if info, err := os.Stat(*dtsPath); err == nil {
			mode = info.Mode()
		}
		if err := os.WriteFile(*dtsPath, []byte(patched), mode); err != nil {
			fmt.Fprintf(os.Stderr, "dtspatch: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Replacement of '%s' with '%s' in '%s' completed.\n", searchStr, replaceStr, *dtsPath)
	case outcomeNotFound:
		fmt.Printf("Neither '%s' nor '%s' found in '%s'. No replacement performed.\n", searchStr, replaceStr, *dtsPath)
	}
}
