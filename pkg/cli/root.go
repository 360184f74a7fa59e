// Package cli implements the debugbar command-line client, which fetches
// stored request datasets from a server's open handler.
package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

const defaultHost = "http://localhost:8080"

// rootOptions holds the values resolved by the root command before any
// subcommand runs.
type rootOptions struct {
	host       string
	output     string
	profile    string
	collectors []string
	client     *Client
}

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd(&http.Client{Timeout: 30 * time.Second})
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]any{"error": err.Error()}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				errObj["http_status"] = apiErr.HTTPStatus
			}
			_ = PrintJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(httpClient *http.Client) *cobra.Command {
	opts := &rootOptions{client: &Client{HTTP: httpClient}}

	rootCmd := &cobra.Command{
		Use:           "debugbar",
		Short:         "Debug toolbar CLI",
		Long:          "Command-line client for datasets captured by the debug toolbar.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				// Keep going so `config set-profile` can repair the file.
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: ignoring config: %v\n", err)
				cfg = defaultUserConfig()
			}
			if opts.profile != "" {
				if _, ok := cfg.Profiles[opts.profile]; !ok {
					return fmt.Errorf("profile %q not found", opts.profile)
				}
			}
			p := cfg.ActiveProfile(opts.profile)
			opts.collectors = p.Collectors

			// Precedence: flag > env > profile > default.
			if !cmd.Flags().Changed("host") {
				if v := os.Getenv("DEBUGBAR_HOST"); v != "" {
					opts.host = v
				} else if p.Host != "" {
					opts.host = p.Host
				}
			}
			if !cmd.Flags().Changed("output") {
				switch {
				case os.Getenv("DEBUGBAR_OUTPUT") != "":
					opts.output = os.Getenv("DEBUGBAR_OUTPUT")
				case p.Output != "":
					opts.output = p.Output
				default:
					opts.output = defaultOutputFormat(cmd.OutOrStdout())
				}
				// Keep the flag in sync so getOutputFormat sees the resolved value.
				_ = cmd.Root().PersistentFlags().Set("output", opts.output)
			}
			if err := validateOutputFormat(opts.output); err != nil {
				return err
			}
			opts.client.BaseURL = opts.host
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.host, "host", defaultHost, "Server URL serving the open handler")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVarP(&opts.profile, "profile", "p", "", "Config profile to use")

	rootCmd.AddCommand(newGetCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
