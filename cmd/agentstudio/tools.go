package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentstudio/config"
	"github.com/hupe1980/agentstudio/tool"
)

func newToolsCmd(flags *rootFlags) *cobra.Command {
	var (
		category string
		all      bool
		asJSON   bool
		withMCP  bool
	)
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools available to agents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath, flags.envFile)
			if err != nil {
				return err
			}
			cfg.Model.Provider = config.ProviderMock
			cfg.Store.Driver = config.DriverMemory

			a, err := newApp(cmd.Context(), cfg, func(o *appOptions) { o.SkipMCP = !withMCP })
			if err != nil {
				return err
			}
			defer a.Close()

			tools := a.studio.ListTools(category, !all)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(tools)
			}
			return writeToolTable(cmd.OutOrStdout(), tools)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only list tools of this category")
	cmd.Flags().BoolVar(&all, "all", false, "Include disabled tools")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print descriptors as JSON")
	cmd.Flags().BoolVar(&withMCP, "mcp", false, "Connect configured MCP servers and list their tools")
	return cmd
}

func writeToolTable(w io.Writer, tools []tool.Descriptor) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tPARAMETERS\tDESCRIPTION")
	for _, d := range tools {
		params := make([]string, 0, len(d.Parameters))
		for _, p := range d.Parameters {
			name := p.Name
			if p.Required {
				name += "*"
			}
			params = append(params, name)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Category, strings.Join(params, ","), d.Description)
	}
	return tw.Flush()
}
