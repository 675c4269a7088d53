package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/mqfacade/pkg/cli/internal/output"
	"github.com/getmockd/mqfacade/pkg/config"
)

// ValidateOutput is the --json result of validate.
type ValidateOutput struct {
	Valid  bool     `json:"valid"`
	Path   string   `json:"path,omitempty"`
	Pools  []string `json:"pools,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

func newValidateCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a configuration file without starting the server",
		Long: `Validate a configuration file without starting the server.

This command checks:
  - YAML or JSON syntax
  - The configuration schema (known fields, required pool fields)
  - Value ranges, cache specs and duplicate pool names`,
		Example: `  # Validate config/config.yaml or MQFACADE_CONFIG
  mqfacade validate

  # Validate a specific file
  mqfacade validate prod.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				o.configPath = args[0]
			}
			out := cmd.OutOrStdout()

			cfg, path, err := config.Load(o.configPath)
			if path == "" && err == nil {
				path, _ = config.ResolvePath(o.configPath)
				if o.jsonOutput {
					return output.JSON(out, ValidateOutput{Valid: true})
				}
				fmt.Fprintf(out, "No configuration file at %s, defaults apply\n", path)
				return nil
			}

			res := ValidateOutput{Path: path}
			if err != nil {
				res.Errors = validationMessages(err)
			} else {
				res.Valid = true
				for _, p := range cfg.Pools {
					res.Pools = append(res.Pools, p.PoolName)
				}
			}

			if o.jsonOutput {
				if jerr := output.JSON(out, res); jerr != nil {
					return jerr
				}
			} else if res.Valid {
				fmt.Fprintf(out, "%s is valid (%d pools)\n", path, len(res.Pools))
			} else {
				fmt.Fprintf(out, "%s is invalid:\n", path)
				for _, msg := range res.Errors {
					fmt.Fprintf(out, "  - %s\n", msg)
				}
			}
			if err != nil {
				return fmt.Errorf("configuration invalid: %w", err)
			}
			return nil
		},
	}
}

// validationMessages flattens err into one message per problem.
func validationMessages(err error) []string {
	var vr *config.ValidationResult
	if errors.As(err, &vr) {
		msgs := make([]string, 0, len(vr.Errors))
		for _, e := range vr.Errors {
			msgs = append(msgs, e.Error())
		}
		return msgs
	}
	return []string{err.Error()}
}
