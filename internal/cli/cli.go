package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/vitaminmoo/neuromenu/internal/ble"
	"github.com/vitaminmoo/neuromenu/internal/catalog"
	"github.com/vitaminmoo/neuromenu/internal/config"
	"github.com/vitaminmoo/neuromenu/internal/console"
	"github.com/vitaminmoo/neuromenu/internal/protocol"
	"github.com/vitaminmoo/neuromenu/internal/replay"
	"github.com/vitaminmoo/neuromenu/internal/session"
	"github.com/vitaminmoo/neuromenu/internal/tui"
	"github.com/vitaminmoo/neuromenu/internal/util"
)

// CLI is the root command structure for neuromenu.
type CLI struct {
	Verbose bool   `short:"v" help:"Enable verbose debug output"`
	Config  string `short:"c" type:"path" help:"Config file (default: ~/.config/neuromenu/config.yaml)"`
	Device  string `help:"Override the advertised device name to scan for"`
	LogFile string `type:"path" help:"Override the log file used by the TUI"`
	Mute    bool   `help:"Do not speak confirmed options"`

	// Default command - TUI
	Tui TuiCmd `cmd:"" default:"withargs" help:"Launch interactive TUI (default)"`

	Listen  ListenCmd  `cmd:"" help:"Connect and print menu activity to the terminal"`
	Replay  ReplayCmd  `cmd:"" help:"Play a recorded session through the menu"`
	Decode  DecodeCmd  `cmd:"" help:"Decode notification payloads given as hex"`
	Options OptionsCmd `cmd:"" help:"List the configured menu options"`
}

func (g *CLI) load() (*config.Config, error) {
	config.Verbose = g.Verbose
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Device != "" {
		cfg.DeviceName = g.Device
	}
	if g.LogFile != "" {
		cfg.LogFile = g.LogFile
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// --- TUI Command ---

type TuiCmd struct {
	Connect bool   `help:"Connect to the device on startup"`
	Record  string `type:"path" placeholder:"FILE" help:"Append raw notifications to FILE"`
}

func (c *TuiCmd) Run(globals *CLI) error {
	cfg, err := globals.load()
	if err != nil {
		return err
	}

	logFile, err := config.OpenLogFile(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	config.SetupLogging(logFile)

	tap, closeRec, err := openRecording(c.Record)
	if err != nil {
		return err
	}
	defer closeRec()

	ctx, stop := signalContext()
	defer stop()

	bridge := tui.NewBridge()
	a := newApp(cfg, ble.NewTransport(cfg.ScanTimeout), bridge, appOptions{
		onEntry: bridge.Entry,
		mirror:  true,
		mute:    globals.Mute,
		tap:     tap,
	})
	a.start()
	defer a.stop()

	opts := []tui.Option{
		tui.WithSpeechStatus(a.speechStatus()),
		tui.WithLogSize(cfg.HistorySize),
	}
	if c.Connect {
		opts = append(opts, tui.WithAutoConnect())
	}
	return tui.Run(ctx, a.controller, a.catalog, bridge, opts...)
}

// --- Listen Command ---

type ListenCmd struct {
	Reconnect bool   `help:"Reconnect with backoff whenever the link drops"`
	Record    string `type:"path" placeholder:"FILE" help:"Append raw notifications to FILE"`
}

func (c *ListenCmd) Run(globals *CLI) error {
	cfg, err := globals.load()
	if err != nil {
		return err
	}
	config.SetupLogging(os.Stderr)

	tap, closeRec, err := openRecording(c.Record)
	if err != nil {
		return err
	}
	defer closeRec()

	ctx, stop := signalContext()
	defer stop()

	cat := cfg.Catalog()
	out := console.New(os.Stdout, cat)
	a := newApp(cfg, ble.NewTransport(cfg.ScanTimeout), out, appOptions{
		onEntry: out.Entry,
		mute:    globals.Mute,
		tap:     tap,
	})
	a.start()
	defer a.stop()

	if c.Reconnect {
		err := a.controller.KeepConnected(ctx, session.NewBackoff(session.BackoffConfig{}))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	if err := a.controller.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	select {
	case <-a.controller.SessionEnded():
	case <-ctx.Done():
	}
	return nil
}

// --- Replay Command ---

type ReplayCmd struct {
	File  string  `arg:"" type:"existingfile" help:"Recording made with --record"`
	Speed float64 `default:"1" help:"Playback speed factor; 0 plays without delays"`
}

func (c *ReplayCmd) Run(globals *CLI) error {
	cfg, err := globals.load()
	if err != nil {
		return err
	}
	config.SetupLogging(os.Stderr)

	tr, err := replay.Load(c.File, c.Speed, cfg.CharacteristicUUID)
	if err != nil {
		return err
	}
	config.Debugf("replaying %d frames from %s at %.2gx", tr.Len(), c.File, c.Speed)

	ctx, stop := signalContext()
	defer stop()

	cat := cfg.Catalog()
	out := console.New(os.Stdout, cat)
	a := newApp(cfg, tr, out, appOptions{onEntry: out.Entry, mute: globals.Mute})
	a.start()
	defer a.stop()

	if err := a.controller.Connect(ctx); err != nil {
		return err
	}
	select {
	case <-a.controller.SessionEnded():
	case <-ctx.Done():
	}
	return nil
}

// --- Decode Command ---

type DecodeCmd struct {
	Payloads []string `arg:"" help:"Payloads as hex, e.g. 00 or '53 04'"`
}

func (c *DecodeCmd) Run(globals *CLI) error {
	cfg, err := globals.load()
	if err != nil {
		return err
	}
	return c.run(os.Stdout, cfg.Catalog())
}

func (c *DecodeCmd) run(w io.Writer, cat *catalog.Catalog) error {
	failed := 0
	for _, arg := range c.Payloads {
		data, err := util.ParseHex(arg)
		if err != nil {
			failed++
			fmt.Fprintf(w, "%-12s error: %v\n", arg, err)
			continue
		}

		ev, err := protocol.Decode(data)
		if err != nil {
			failed++
			fmt.Fprintf(w, "%-12s error: %v\n", util.FormatHex(data), err)
			continue
		}

		line := ev.String()
		switch e := ev.(type) {
		case protocol.FocusMoved:
			line += " " + cat.LabelFor(e.OptionID)
		case protocol.OptionConfirmed:
			line += " " + cat.LabelFor(e.OptionID)
		}
		fmt.Fprintf(w, "%-12s %s\n", util.FormatHex(data), line)
		if config.Verbose {
			util.WriteHexDump(w, data)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d payloads failed to decode", failed, len(c.Payloads))
	}
	return nil
}

// --- Options Command ---

type OptionsCmd struct{}

func (c *OptionsCmd) Run(globals *CLI) error {
	cfg, err := globals.load()
	if err != nil {
		return err
	}
	return listOptions(os.Stdout, cfg.Catalog())
}

func listOptions(w io.Writer, cat *catalog.Catalog) error {
	fmt.Fprintf(w, "Found %d option(s):\n\n", cat.Len())
	for _, o := range cat.Options() {
		if _, err := fmt.Fprintf(w, "  %d  %s\n", o.ID, o.Label); err != nil {
			return err
		}
	}
	return nil
}
