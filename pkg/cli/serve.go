package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP query facade (foreground)",
		Long: `Start the HTTP query facade. Configured pools are installed at startup;
endpoints named by key are installed on first use. SIGINT or SIGTERM stops
the server gracefully.`,
		Example: `  # Start with config/config.yaml or MQFACADE_CONFIG
  mqfacade serve

  # Start with an explicit config on another port
  mqfacade serve --config prod.yaml --port 8080

  # Human-readable logs
  mqfacade serve --log-format pretty --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if !cmd.Flags().Changed("port") {
				port = -1
			}
			return runServe(ctx, o, port)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Admin HTTP port (overrides server.port)")
	return cmd
}

// runServe loads the configuration and serves until ctx is done. A
// negative port keeps the configured one.
func runServe(ctx context.Context, o *rootOptions, port int) error {
	cfg, path, err := o.loadConfig()
	if err != nil {
		return err
	}
	if port >= 0 {
		cfg.Server.Port = port
	}
	log := o.logger(cfg)
	if path == "" {
		log.Info("no configuration file found, using defaults")
	} else {
		log.Info("configuration loaded", "path", path, "pools", len(cfg.Pools))
	}

	srv, err := newServer(cfg, log, o.dialerFor(cfg, log), o.info.Version)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		_ = srv.shutdown(context.Background())
		return fmt.Errorf("listen on port %d: %w", cfg.Server.Port, err)
	}
	return srv.run(ctx, ln)
}
