package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/mqfacade/pkg/config"
	"github.com/getmockd/mqfacade/pkg/logging"
	"github.com/getmockd/mqfacade/pkg/pcf"
)

// BuildInfo is injected by main from ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	info       BuildInfo
	configPath string
	logLevel   string
	logFormat  string
	jsonOutput bool

	// logOutput overrides stderr for the process logger. Tests only.
	logOutput io.Writer
	// dialer overrides the IBM MQ transport. Tests only.
	dialer pcf.Dialer
}

// NewRootCmd builds the mqfacade command tree.
func NewRootCmd(info BuildInfo) *cobra.Command {
	return newRootCmd(&rootOptions{info: info})
}

func newRootCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mqfacade",
		Short: "mqfacade is a cached query facade over IBM MQ queue managers",
		Long: `mqfacade answers questions about IBM MQ queue managers over HTTP:
queue and topic names, attributes, depths and subscriptions. Answers are
cached per queue manager and per kind of question, and connections are
pooled per endpoint.

Configuration is read from --config, the MQFACADE_CONFIG environment
variable or config/config.yaml, in that order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&o.configPath, "config", "c", "", "Path to the configuration file (YAML or JSON)")
	pf.StringVar(&o.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	pf.StringVar(&o.logFormat, "log-format", "", "Log format override (text, json, pretty)")
	pf.BoolVar(&o.jsonOutput, "json", false, "Output command results in JSON format")

	cmd.AddCommand(
		newServeCmd(o),
		newValidateCmd(o),
		newKeyCmd(o),
		newProbeCmd(o),
		newVersionCmd(o),
	)
	return cmd
}

// Execute runs the command tree and exits non-zero on error.
func Execute(info BuildInfo) {
	os.Exit(Run(info))
}

// Run runs the command tree with os.Args and returns the process exit code.
func Run(info BuildInfo) int {
	if err := NewRootCmd(info).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig loads the configuration selected by --config.
func (o *rootOptions) loadConfig() (*config.Config, string, error) {
	cfg, path, err := config.Load(o.configPath)
	if err != nil {
		if path != "" {
			return nil, path, fmt.Errorf("loading %s: %w", path, err)
		}
		return nil, path, err
	}
	return cfg, path, nil
}

// logger builds the process logger. Flags win over the file.
func (o *rootOptions) logger(cfg *config.Config) *slog.Logger {
	level, format := cfg.Logging.Level, cfg.Logging.Format
	if o.logLevel != "" {
		level = o.logLevel
	}
	if o.logFormat != "" {
		format = o.logFormat
	}
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(level)
	lc.Format = logging.ParseFormat(format)
	if o.logOutput != nil {
		lc.Output = o.logOutput
	}
	return logging.New(lc)
}

// dialerFor returns the transport for cfg.
func (o *rootOptions) dialerFor(cfg *config.Config, log *slog.Logger) pcf.Dialer {
	if o.dialer != nil {
		return o.dialer
	}
	return pcf.NewDialer(cfg.Broker.Transport(), log.With("component", "pcf"))
}
