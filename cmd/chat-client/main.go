package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/omochice/realtime-messenger/internal/client"
	"github.com/omochice/realtime-messenger/internal/config"
	"github.com/omochice/realtime-messenger/internal/logging"
	"github.com/omochice/realtime-messenger/internal/tui"
)

const defaultTUILogFile = "chat-client.log"

type options struct {
	configPath string
	origin     string
	session    string
	logLevel   string
	plain      bool
}

func main() {
	var opts options

	rootCmd := &cobra.Command{
		Use:   "chat-client",
		Short: "Terminal client for the real-time chat server",
		Long: `chat-client keeps a websocket connection to the chat server open,
shows the open conversation live and tracks unread messages for every
other contact in the roster.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&opts.configPath, "config", "c", "", "path to the YAML config file")
	persistent.StringVar(&opts.origin, "origin", "", "server origin, e.g. http://localhost:8080 (overrides config)")
	persistent.StringVar(&opts.session, "session", "", "session cookie value (overrides config)")
	persistent.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides config)")
	rootCmd.Flags().BoolVar(&opts.plain, "plain", false, "line-oriented output instead of the full-screen UI")

	rootCmd.AddCommand(newFeedCommand(&opts))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.origin != "" {
		cfg.Origin = opts.origin
	}
	if opts.session != "" {
		cfg.Session = opts.session
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	return cfg, nil
}

func run(ctx context.Context, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	plain := opts.plain || !isatty.IsTerminal(os.Stdout.Fd())
	logFile := cfg.Log.File
	if !plain && logFile == "" {
		logFile = defaultTUILogFile
	}
	logOut := os.Stderr
	if logFile != "" {
		f, err := logging.OpenFile(logFile)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	if err := logging.Setup(cfg.Log.Level, logOut); err != nil {
		return err
	}

	if plain {
		return runPlain(ctx, cfg)
	}
	return runTUI(ctx, cfg)
}

func runTUI(ctx context.Context, cfg *config.Config) error {
	bridge := tui.NewBridge(256)
	defer bridge.Close()

	c, err := client.NewFromConfig(cfg,
		client.WithRenderer(bridge),
		client.WithBadges(bridge),
		client.WithStatus(bridge),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		defer bridge.Close()

		model := tui.NewModel(ctx, c, cfg.Contacts, bridge.Events())
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			return errors.Wrap(err, "ui failed")
		}
		return nil
	})

	err = g.Wait()
	log.Info().Msg("chat client stopped")
	return err
}
