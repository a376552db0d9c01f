package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/fieldfill/internal/api"
	"github.com/jackzampolin/fieldfill/internal/config"
	"github.com/jackzampolin/fieldfill/internal/home"
	"github.com/jackzampolin/fieldfill/internal/svcctx"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage fieldfill configuration",
}

var configInitCmd = &cobra.Command{
	Use:         "init [path]",
	Short:       "Write the default configuration file (default: ~/.fieldfill/config.yaml)",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipServices: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) == 1 {
			path = args[0]
		} else {
			h, err := home.New(homeDir)
			if err != nil {
				return err
			}
			if err := h.EnsureExists(); err != nil {
				return err
			}
			path = h.ConfigPath()
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := svcctx.ConfigFrom(cmd.Context()).Get()
		return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), cfg)
	},
}

// providerRow is one line of `config providers`.
type providerRow struct {
	Name    string  `json:"name" yaml:"name"`
	Type    string  `json:"type" yaml:"type"`
	Model   string  `json:"model,omitempty" yaml:"model,omitempty"`
	RPS     float64 `json:"rps" yaml:"rps"`
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Ready   bool    `json:"ready" yaml:"ready"`
}

type providerTable []providerRow

func (t providerTable) TableHeader() []string {
	return []string{"NAME", "TYPE", "MODEL", "RPS", "ENABLED", "READY"}
}

func (t providerTable) TableRows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, p := range t {
		rows = append(rows, []string{
			p.Name, p.Type, p.Model, fmt.Sprintf("%g", p.RPS),
			fmt.Sprintf("%t", p.Enabled), fmt.Sprintf("%t", p.Ready),
		})
	}
	return rows
}

var configProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured LLM providers and whether they are ready",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := svcctx.ConfigFrom(ctx).Get()
		registry := svcctx.RegistryFrom(ctx)

		names := make([]string, 0, len(cfg.LLMProviders))
		for name := range cfg.LLMProviders {
			names = append(names, name)
		}
		sort.Strings(names)

		out := make(providerTable, 0, len(names))
		for _, name := range names {
			p := cfg.LLMProviders[name]
			row := providerRow{
				Name:    name,
				Type:    p.Type,
				Model:   p.Model,
				RPS:     p.RateLimit,
				Enabled: p.Enabled,
				Ready:   registry.HasLLM(name),
			}
			if l := registry.Limiter(name); l != nil {
				row.RPS = l.RPS()
			}
			out = append(out, row)
		}
		return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), out)
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd, configProvidersCmd)
	rootCmd.AddCommand(configCmd)
}
