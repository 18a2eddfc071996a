package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vango-dev/livehooks/internal/config"
	"github.com/vango-dev/livehooks/pkg/server"
	"github.com/vango-dev/livehooks/pkg/store"
)

func serveCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		port int
		host string
		db   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the companion server",
		Long: `Serve the demo live page.

The page carries a CSRF token, a self-dismissing flash notice and a
reorderable list whose order is stored in SQLite.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("db") {
				cfg.Server.Database = db
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "Port to listen on")
	cmd.Flags().StringVar(&host, "host", config.DefaultHost, "Host to bind to")
	cmd.Flags().StringVar(&db, "db", config.DefaultDatabase, "SQLite database file")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(cfg.Server.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	items := make([]store.Item, 0, len(cfg.Server.Items))
	for _, it := range cfg.Server.Items {
		items = append(items, store.Item{ID: it.ID, Label: it.Label})
	}
	if err := st.Seed(ctx, items); err != nil {
		return err
	}

	secret := []byte(cfg.Server.CSRFSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return err
		}
		slog.Info("generated ephemeral CSRF secret; tokens will not survive a restart")
	}

	execToken := cfg.Server.ExecToken
	if execToken == "" {
		b := make([]byte, 24)
		if _, err := rand.Read(b); err != nil {
			return err
		}
		execToken = hex.EncodeToString(b)
	}

	srv := server.New(&server.Config{
		Address:    cfg.Address(),
		LivePath:   cfg.Client.Path,
		CSRFSecret: secret,
		ExecToken:  execToken,
		Store:      st,
		Flash:      cfg.Server.Flash,
		Logger:     slog.Default(),
	})

	success("Serving on http://%s", cfg.Address())
	info("Live socket at %s/websocket", cfg.Client.Path)
	info("Metrics at /metrics")
	if cfg.Server.ExecToken == "" {
		info("Exec token: %s", execToken)
	}
	return srv.Run(ctx)
}
