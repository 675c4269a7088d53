package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/mqfacade/pkg/cli/internal/output"
	"github.com/getmockd/mqfacade/pkg/endpoint"
)

// KeyOutput is the --json result of key.
type KeyOutput struct {
	Key     string `json:"key"`
	Escaped string `json:"escaped"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Channel string `json:"channel"`
}

func newKeyCmd(o *rootOptions) *cobra.Command {
	var (
		host    string
		port    int
		channel string
	)

	cmd := &cobra.Command{
		Use:   "key [CHANNEL@host:port | json]",
		Short: "Build or parse an endpoint key",
		Long: `Build an endpoint key from --host, --port and --channel, or parse one
given in canonical or JSON form, and print both forms. The escaped form is
what goes into /mq/{mq}/... URLs.`,
		Example: `  mqfacade key --host mq1.example.com --port 1414 --channel APP.SVRCONN
  mqfacade key APP.SVRCONN@mq1.example.com:1414
  mqfacade key '{"host":"mq1.example.com","port":1414,"channel":"APP.SVRCONN"}'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				key *endpoint.Key
				err error
			)
			switch {
			case len(args) == 0:
				key, err = endpoint.New(host, port, channel)
			case strings.HasPrefix(strings.TrimSpace(args[0]), "{"):
				key, err = endpoint.ParseJSON([]byte(args[0]))
			default:
				key, err = endpoint.Parse(args[0])
			}
			if err != nil {
				return err
			}

			res := KeyOutput{
				Key:     key.String(),
				Escaped: url.PathEscape(key.String()),
				Host:    key.Host(),
				Port:    key.Port(),
				Channel: key.Channel(),
			}
			out := cmd.OutOrStdout()
			if o.jsonOutput {
				return output.JSON(out, res)
			}
			fmt.Fprintln(out, res.Key)
			fmt.Fprintln(out, key.JSON())
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Queue manager host")
	cmd.Flags().IntVar(&port, "port", 1414, "Queue manager listener port")
	cmd.Flags().StringVar(&channel, "channel", "", "Server-connection channel")
	return cmd
}
