// Package serialport finds and opens the serial console of a connected
// device. Discovery prefers USB CDC ports, wakes each candidate, and keeps
// the first one that negotiates a working shell session.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/danmuck/thingsetctl/internal/shell"
)

var (
	ErrNoPorts = errors.New("serialport: no serial ports found")
	ErrNoShell = errors.New("serialport: no thingset shell found")
)

// bannerWindow bounds the read for boot output after opening a port.
const bannerWindow = 200 * time.Millisecond

// Config controls discovery and the session handed to each candidate.
type Config struct {
	Port         string
	Baud         int
	BootWait     time.Duration
	Listen       time.Duration
	ProbeTimeout time.Duration
	Shell        shell.Config
	Out          io.Writer
}

func DefaultConfig() Config {
	return Config{
		Baud:         115200,
		BootWait:     100 * time.Millisecond,
		ProbeTimeout: time.Second,
		Shell:        shell.DefaultConfig(),
	}
}

// Candidates lists the serial ports worth probing, USB-backed ones first
// when any exist.
func Candidates() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	for _, p := range ports {
		log.Debug().Str("port", Describe(p)).Msg("serial port detected")
	}
	return pickPorts(ports), nil
}

func pickPorts(ports []*enumerator.PortDetails) []string {
	var usb, all []string
	for _, p := range ports {
		all = append(all, p.Name)
		if p.IsUSB || strings.Contains(p.Name, "ttyACM") || strings.Contains(p.Name, "ttyUSB") {
			usb = append(usb, p.Name)
		}
	}
	if len(usb) > 0 {
		return usb
	}
	return all
}

// Describe renders one enumerated port with whatever USB identity it has.
func Describe(p *enumerator.PortDetails) string {
	var extras []string
	if p.Product != "" {
		extras = append(extras, "desc="+p.Product)
	}
	if p.SerialNumber != "" {
		extras = append(extras, "sn="+p.SerialNumber)
	}
	if p.IsUSB {
		extras = append(extras, "vid:pid="+p.VID+":"+p.PID)
	}
	if len(extras) == 0 {
		return p.Name
	}
	return fmt.Sprintf("%s (%s)", p.Name, strings.Join(extras, ", "))
}

// Open opens one port at 8N1 and pulses DTR so CDC-ACM endpoints wake up.
func Open(name string, baud int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	_ = port.SetDTR(true)
	_ = port.SetRTS(true)
	_ = port.SetDTR(false)
	time.Sleep(50 * time.Millisecond)
	_ = port.SetDTR(true)
	_ = port.ResetInputBuffer()
	_ = port.ResetOutputBuffer()
	return port, nil
}

// FindShell probes each candidate port until one negotiates a session.
// The returned port backs the returned shell and stays open; every losing
// candidate is closed before moving on.
func FindShell(cfg Config) (serial.Port, *shell.Shell, error) {
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	names := []string{cfg.Port}
	if cfg.Port == "" {
		var err error
		if names, err = Candidates(); err != nil {
			return nil, nil, err
		}
	}
	if len(names) == 0 {
		return nil, nil, ErrNoPorts
	}
	for _, name := range names {
		log.Debug().Str("port", name).Int("baud", cfg.Baud).Msg("trying port")
		port, err := Open(name, cfg.Baud)
		if err != nil {
			log.Debug().Err(err).Str("port", name).Msg("open failed")
			continue
		}
		sh := shell.New(port, cfg.Shell)
		time.Sleep(cfg.BootWait)
		if banner := sh.ReadFor(bannerWindow); len(banner) > 0 {
			log.Trace().Str("banner", shell.Preview(banner, 200)).Msg("boot output")
		}
		if cfg.Listen > 0 {
			sniff := sh.ReadFor(cfg.Listen)
			log.Trace().Dur("window", cfg.Listen).Str("data", shell.Preview(sniff, 200)).Msg("listen window")
		}
		if err := sh.EnterSession(cfg.ProbeTimeout); err != nil {
			log.Debug().Err(err).Str("port", name).Msg("shell probe failed")
			_ = port.Close()
			continue
		}
		fmt.Fprintf(out, "Connected ThingSet shell on %s\n", name)
		return port, sh, nil
	}
	return nil, nil, ErrNoShell
}
