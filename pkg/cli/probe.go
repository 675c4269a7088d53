package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/mqfacade/pkg/cli/internal/output"
	"github.com/getmockd/mqfacade/pkg/config"
	"github.com/getmockd/mqfacade/pkg/endpoint"
	"github.com/getmockd/mqfacade/pkg/mqerr"
	"github.com/getmockd/mqfacade/pkg/pool"
)

// ProbeOutput is the --json result of probe.
type ProbeOutput struct {
	Key          string `json:"key"`
	Pool         string `json:"pool,omitempty"`
	QueueManager string `json:"queueManager"`
	ElapsedMs    int64  `json:"elapsedMs"`
}

func newProbeCmd(o *rootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "probe <pool-name | CHANNEL@host:port>",
		Short: "Connect once to a queue manager and print its name",
		Long: `Open a single connection outside any pool, ask the queue manager for its
name and disconnect. Pool names are looked up in the configuration.`,
		Example: `  mqfacade probe mq8
  mqfacade probe APP.SVRCONN@mq1.example.com:1414 --timeout 5s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := o.loadConfig()
			if err != nil {
				return err
			}
			desc, err := probeDescriptor(cfg, args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			log := o.logger(cfg)
			res, err := probe(ctx, pool.New(o.dialerFor(cfg, log), pool.WithLogger(log)), desc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if o.jsonOutput {
				return output.JSON(out, res)
			}
			fmt.Fprintf(out, "%s -> %s (%dms)\n", res.Key, res.QueueManager, res.ElapsedMs)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Connect timeout")
	return cmd
}

// probeDescriptor resolves a pool name or key against the configured pools.
// A key that matches no configured pool gets a synthesized descriptor.
func probeDescriptor(cfg *config.Config, lookup string) (endpoint.Descriptor, error) {
	if endpoint.IsKey(lookup) {
		key, _ := endpoint.Parse(lookup)
		for _, def := range cfg.Pools {
			if d, err := def.Descriptor(); err == nil && d.Key == key {
				return d, nil
			}
		}
		return endpoint.Synthesize(key), nil
	}
	for _, def := range cfg.Pools {
		if def.PoolName == lookup {
			return def.Descriptor()
		}
	}
	return endpoint.Descriptor{}, mqerr.Errorf(mqerr.NotFound, "probe", "no configured pool named %q", lookup)
}

// probe opens a standalone connection, reads the queue manager name and
// releases it.
func probe(ctx context.Context, p *pool.Pool, desc endpoint.Descriptor) (ProbeOutput, error) {
	defer func() {
		_ = p.Shutdown(context.Background())
	}()

	start := time.Now()
	conn, err := p.Standalone(ctx, desc)
	if err != nil {
		return ProbeOutput{}, err
	}
	defer p.Release(conn)

	return ProbeOutput{
		Key:          desc.Key.String(),
		Pool:         poolName(desc),
		QueueManager: conn.QueueManager(),
		ElapsedMs:    time.Since(start).Milliseconds(),
	}, nil
}

func poolName(d endpoint.Descriptor) string {
	if d.Synthesized() {
		return ""
	}
	return d.PoolName
}
