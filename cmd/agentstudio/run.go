package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentstudio/config"
	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/execution"
)

// bundle is a self-contained workflow run: templates, a definition whose
// nodes reference the templates by id, and the input.
type bundle struct {
	Name       string
	Templates  map[string]core.AgentConfig
	Definition core.WorkflowDefinition
	Input      map[string]any
}

type rawBundle struct {
	Name      string         `yaml:"name"`
	Templates map[string]any `yaml:"templates"`
	Workflow  any            `yaml:"workflow"`
	Input     map[string]any `yaml:"input"`
}

func loadBundle(r io.Reader) (*bundle, error) {
	var raw rawBundle
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse bundle: %w", err)
	}
	if raw.Workflow == nil {
		return nil, errors.New("bundle has no workflow")
	}

	templates, err := config.DecodeTemplates(raw.Templates)
	if err != nil {
		return nil, err
	}
	var def core.WorkflowDefinition
	if err := config.Remarshal(raw.Workflow, &def); err != nil {
		return nil, fmt.Errorf("workflow: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("workflow: %w", err)
	}
	for _, n := range def.Nodes {
		if !n.AgentID.IsTemplate() {
			return nil, fmt.Errorf("node %s must reference a template", n.ID)
		}
	}

	name := raw.Name
	if name == "" {
		name = "bundle"
	}
	input := raw.Input
	if input == nil {
		input = map[string]any{}
	}
	return &bundle{Name: name, Templates: templates, Definition: def, Input: input}, nil
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "run <bundle.yaml>",
		Short: "Execute a workflow bundle once and print the execution record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			b, err := loadBundle(f)
			if err != nil {
				return err
			}
			if message != "" {
				b.Input["message"] = message
			}

			cfg, err := config.Load(flags.configPath, flags.envFile)
			if err != nil {
				return err
			}
			cfg.Store.Driver = config.DriverMemory

			rec, err := runBundle(cmd.Context(), cfg, b)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(rec); err != nil {
				return err
			}
			if rec.Status != execution.StatusCompleted {
				return fmt.Errorf("execution %s: %s", rec.Status, rec.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Set input.message")
	return cmd
}

func runBundle(ctx context.Context, cfg config.Config, b *bundle, optFns ...func(o *appOptions)) (*execution.Record, error) {
	a, err := newApp(ctx, cfg, append(optFns, func(o *appOptions) { o.Templates = b.Templates })...)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	wf, err := a.studio.CreateWorkflow(ctx, b.Name, "", b.Definition)
	if err != nil {
		return nil, err
	}
	return a.studio.ExecuteWorkflow(ctx, wf.ID, b.Input)
}
