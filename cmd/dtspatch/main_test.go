package main

import (
	"strings"
	"testing"
)

const sampleDTS = `
/ {
	chosen {
		zephyr,console = &cdc_acm_uart0;
		zephyr,shell-uart = &cdc_acm_uart0;
	};
};
`

func TestPatchRewritesConsole(t *testing.T) {
	got, result := patch(sampleDTS)
	if result != outcomePatched {
		t.Fatalf("outcome = %v", result)
	}
	if !strings.Contains(got, "zephyr,console = &lpuart1;") {
		t.Fatalf("console line not rewritten:\n%s", got)
	}
	// only the console line changes, the shell-uart stays on USB
	if !strings.Contains(got, "zephyr,shell-uart = &cdc_acm_uart0;") {
		t.Fatalf("unrelated line touched:\n%s", got)
	}
}

func TestPatchIsIdempotent(t *testing.T) {
	once, _ := patch(sampleDTS)
	twice, result := patch(once)
	if result != outcomeAlready {
		t.Fatalf("second pass outcome = %v", result)
	}
	if twice != once {
		t.Fatalf("second pass changed the file")
	}
}

func TestPatchLeavesForeignFilesAlone(t *testing.T) {
	in := "/ { chosen { zephyr,console = &usart3; }; };"
	got, result := patch(in)
	if result != outcomeNotFound {
		t.Fatalf("outcome = %v", result)
	}
	if got != in {
		t.Fatalf("contents changed: %q", got)
	}
}
