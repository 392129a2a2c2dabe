package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omochice/realtime-messenger/internal/logging"
	"github.com/omochice/realtime-messenger/internal/server"
)

// demoUsers are used when no seed file is given.
var demoUsers = []server.User{
	{ID: 1, Username: "ada lovelace", Session: "ada"},
	{ID: 2, Username: "alan turing", Session: "alan"},
	{ID: 3, Username: "grace hopper", Session: "grace"},
}

func main() {
	var (
		addr     string
		seedPath string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:          "server",
		Short:        "In-memory chat server for local development",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Setup(logLevel, os.Stderr); err != nil {
				return err
			}

			users := demoUsers
			if seedPath != "" {
				var err error
				if users, err = server.LoadUsers(seedPath); err != nil {
					return err
				}
			}
			store, err := server.NewStore(users, nil)
			if err != nil {
				return err
			}
			for _, u := range store.Users() {
				log.Info().Int("user_id", u.ID).Str("username", u.Username).Str("session", u.Session).Msg("seeded user")
			}

			srv := server.New(addr, store)
			if err := srv.Start(cmd.Context()); err != nil {
				return err
			}
			log.Info().Msg("chat server stopped")
			return nil
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&addr, "addr", ":8080", "address to listen on")
	flags.StringVar(&seedPath, "users", "", "YAML seed file with the users and their sessions")
	flags.StringVar(&logLevel, "log-level", "info", "log level")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
