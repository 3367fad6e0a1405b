package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/crossbind/seqbridge"
	"github.com/crossbind/seqbridge/bridge"
	"github.com/crossbind/seqbridge/config"
	"github.com/crossbind/seqbridge/guest"
)

var (
	configFile  string
	interactive bool
)

var rootCmd = &cobra.Command{
	Use:   "seqmon",
	Short: "Inspector and demo driver for a seqbridge reference table",
	Long: `seqmon initializes the process-wide reference-counting bridge, runs a
small scripted handle workload, and shows the live count table. With -i it
opens an interactive view where inc/dec/reg commands can be issued by hand.`,
	Args: cobra.NoArgs,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to YAML configuration file")
	rootCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Interactive mode with TUI")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = config.ReadFile(configFile); err != nil {
			return err
		}
	} else if err := cfg.Parse(); err != nil {
		return err
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()
	bridge.SetLogger(logger)
	guest.SetLogger(logger)

	b := bridge.Default()
	b.Init()
	b.Subscribe(eventLogger{logger})

	if err := seed(b); err != nil {
		return fmt.Errorf("seed workload: %w", err)
	}

	if interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode requires a terminal")
		}
		return runInteractive(b, cfg)
	}

	printSnapshot(os.Stdout, b, cfg)
	return nil
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(cfg.Level())
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

// eventLogger mirrors handle lifecycle events into the log stream.
type eventLogger struct {
	log *zap.Logger
}

func (l eventLogger) OnRefEvent(e seqbridge.Event) {
	switch e.Type {
	case seqbridge.EventTracked:
		l.log.Debug("refnum tracked", zap.Int32("refnum", int32(e.Ref)))
	case seqbridge.EventReleased:
		l.log.Debug("refnum released", zap.Int32("refnum", int32(e.Ref)))
	}
}

// seed runs a small workload so the table has something to show: two local
// payloads plus a host-owned refnum pinned from both sides.
func seed(b *bridge.Bridge) error {
	if _, err := b.Register("demo: config blob"); err != nil {
		return err
	}
	if _, err := b.Register("demo: open session"); err != nil {
		return err
	}
	for _, ref := range []seqbridge.Refnum{-42, -42, -7} {
		if err := b.IncRef(ref); err != nil {
			return err
		}
	}
	return b.DecRef(-7)
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	localStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	hostStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB86C"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func printSnapshot(w *os.File, b *bridge.Bridge, cfg *config.Config) {
	fmt.Fprintln(w, titleStyle.Render("seqbridge reference table"))
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%8s  %5s  %-6s  %s", "REFNUM", "COUNT", "OWNER", "PAYLOAD")))

	for _, s := range b.Stats() {
		owner, style := "host", hostStyle
		if s.Ref.Local() {
			owner, style = "local", localStyle
		}
		payload := ""
		if s.Payload != nil {
			payload = fmt.Sprintf("%v", s.Payload)
		}
		fmt.Fprintln(w, style.Render(fmt.Sprintf("%8d  %5d  %-6s  %s", s.Ref, s.Count, owner, payload)))
	}

	fmt.Fprintln(w, helpStyle.Render(fmt.Sprintf("%d refnum(s) tracked", b.Len())))
	if cfg.LeakThreshold > 0 && b.Len() > cfg.LeakThreshold {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf(
			"warning: %d tracked refnums exceed leak threshold %d", b.Len(), cfg.LeakThreshold)))
	}
}
