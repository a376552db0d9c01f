package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/fieldfill/internal/api"
	"github.com/jackzampolin/fieldfill/internal/home"
	"github.com/jackzampolin/fieldfill/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect and validate extraction schemas",
}

var schemaListCmd = &cobra.Command{
	Use:         "list",
	Short:       "List built-in schemas and user schemas in the home directory",
	Annotations: map[string]string{skipServices: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		type entry struct {
			Name        string `json:"name" yaml:"name"`
			Description string `json:"description,omitempty" yaml:"description,omitempty"`
			Fields      int    `json:"fields" yaml:"fields"`
			Source      string `json:"source" yaml:"source"`
		}
		var out []entry
		for _, name := range schema.BuiltinNames() {
			s, err := schema.Builtin(name)
			if err != nil {
				return err
			}
			out = append(out, entry{Name: s.Name(), Description: s.Description(), Fields: s.Len(), Source: "builtin"})
		}

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		userNames, err := h.UserSchemas()
		if err != nil {
			return err
		}
		for _, name := range userNames {
			s, err := schema.LoadFile(h.SchemaPath(name))
			if err != nil {
				return fmt.Errorf("user schema %s: %w", name, err)
			}
			out = append(out, entry{Name: name, Description: s.Description(), Fields: s.Len(), Source: h.SchemaPath(name)})
		}
		return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), out)
	},
}

var schemaShowCmd = &cobra.Command{
	Use:         "show [schema]",
	Short:       "Print a schema (built-in name, user schema, or YAML file; default herbs)",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipServices: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := ""
		if len(args) == 1 {
			ref = args[0]
		}
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		s, err := resolveSchema(h, ref)
		if err != nil {
			return err
		}
		return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), schema.Export(s))
	},
}

var schemaValidateCmd = &cobra.Command{
	Use:         "validate <file>",
	Short:       "Validate a schema YAML file",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipServices: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := schema.LoadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d fields, %d with repair prompts)\n",
			s.Name(), s.Len(), s.RepairCount())
		return nil
	},
}

func init() {
	schemaCmd.AddCommand(schemaListCmd, schemaShowCmd, schemaValidateCmd)
	rootCmd.AddCommand(schemaCmd)
}
