package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage server profiles",
		Long: "Profiles name the servers the CLI reads datasets from. Each one can\n" +
			"set a default output format and the collectors `get` summarizes.",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetProfileCmd())
	cmd.AddCommand(newConfigUseProfileCmd())
	cmd.AddCommand(newConfigDeleteProfileCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List configured profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(out, cfg)
			}
			if len(cfg.Profiles) == 0 {
				_, _ = fmt.Fprintf(out, "No profiles in %s; add one with `debugbar config set-profile`.\n", ConfigPath())
				return nil
			}
			rows := make([][]string, 0, len(cfg.Profiles))
			for _, name := range cfg.ProfileNames() {
				p := cfg.Profiles[name]
				active := ""
				if name == cfg.CurrentProfile {
					active = "*"
				}
				rows = append(rows, []string{name, active, orDash(p.Host), orDash(p.Output), orDash(strings.Join(p.Collectors, ","))})
			}
			PrintTable(out, []string{"profile", "active", "host", "output", "collectors"}, rows)
			return nil
		},
	}
}

func newConfigSetProfileCmd() *cobra.Command {
	var (
		name       string
		host       string
		output     string
		collectors string
	)

	cmd := &cobra.Command{
		Use:   "set-profile",
		Short: "Create or update a profile",
		Example: "  debugbar config set-profile --name staging --host https://staging.example.com \\\n" +
			"    --collectors queries,exceptions",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				return err
			}

			p := cfg.Profiles[name]
			if cmd.Flags().Changed("host") {
				p.Host = strings.TrimRight(host, "/")
			}
			if cmd.Flags().Changed("default-output") {
				p.Output = output
			}
			if cmd.Flags().Changed("collectors") {
				p.Collectors = splitCollectors(collectors)
			}
			if err := p.Validate(); err != nil {
				return err
			}
			cfg.Profiles[name] = p
			if len(cfg.Profiles) == 1 {
				cfg.CurrentProfile = name
			}

			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]any{
					"profile": name,
					"active":  cfg.CurrentProfile == name,
					"path":    ConfigPath(),
				})
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Profile %q saved to %s\n", name, ConfigPath())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Profile name (required)")
	cmd.Flags().StringVar(&host, "host", "", "Server URL serving the open handler")
	cmd.Flags().StringVar(&output, "default-output", "", "Output format used with this profile (table, json)")
	cmd.Flags().StringVar(&collectors, "collectors", "", "Comma separated collectors to summarize; empty shows all")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newConfigUseProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use-profile <name>",
		Short: "Set the active profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateProfiles(cmd, args[0], "Active profile set to %q\n", (*UserConfig).Use)
		},
	}
}

func newConfigDeleteProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-profile <name>",
		Short: "Remove a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateProfiles(cmd, args[0], "Profile %q deleted\n", (*UserConfig).Delete)
		},
	}
}

// updateProfiles applies change to the stored config and reports the
// resulting active profile.
func updateProfiles(cmd *cobra.Command, name, done string, change func(*UserConfig, string) error) error {
	cfg, err := LoadUserConfig()
	if err != nil {
		return err
	}
	if err := change(cfg, name); err != nil {
		return err
	}
	if err := SaveUserConfig(cfg); err != nil {
		return err
	}
	if getOutputFormat(cmd) == "json" {
		return PrintJSON(cmd.OutOrStdout(), map[string]string{
			"profile":        name,
			"active_profile": cfg.CurrentProfile,
		})
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), done, name)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
