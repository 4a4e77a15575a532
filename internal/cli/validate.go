package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/light-bringer/fieldwatch/internal/config"
	"github.com/light-bringer/fieldwatch/internal/host/sqlhost"
)

type problemView struct {
	Field    string `json:"field,omitempty"`
	Reaction string `json:"reaction,omitempty"`
	Message  string `json:"message"`
}

type modelCheck struct {
	Model    string        `json:"model"`
	Fields   []string      `json:"fields"`
	Problems []problemView `json:"problems,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var checkStore bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configured watch lists",
		Long: `Validate the configuration and every model's watch list.

With --check-store and the sqlite backend, watched fields are also checked
against the table's columns.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), rootOpts, checkStore, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&checkStore, "check-store", false, "check watched fields against the sqlite schema")
	return cmd
}

func runValidate(ctx context.Context, opts *RootOptions, checkStore bool, out io.Writer) error {
	cfg := opts.Config
	checks := make([]modelCheck, 0, len(cfg.Models))
	failed := 0

	for i := range cfg.Models {
		model := &cfg.Models[i]
		spec, err := model.WatchSpec()
		if err != nil {
			return err
		}

		var schema []string
		if checkStore && cfg.Store.Backend == config.BackendSQLite {
			if schema, err = storeSchema(ctx, cfg, model); err != nil {
				return err
			}
		}

		check := modelCheck{Model: model.Name, Fields: spec.Fields()}
		for _, p := range spec.Validate(schema, nil) {
			check.Problems = append(check.Problems, problemView{Field: p.Field, Reaction: p.Reaction, Message: p.Error()})
		}
		failed += len(check.Problems)
		checks = append(checks, check)
	}

	err := printer{format: opts.Format, w: out}.print(checks, func(w io.Writer) {
		for _, c := range checks {
			if len(c.Problems) == 0 {
				fmt.Fprintf(w, "✓ %s: %d watched field(s)\n", c.Model, len(c.Fields))
				continue
			}
			fmt.Fprintf(w, "✗ %s:\n", c.Model)
			for _, p := range c.Problems {
				fmt.Fprintf(w, "    %s\n", p.Message)
			}
		}
	})
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d configuration problem(s)", failed)
	}
	return nil
}

func storeSchema(ctx context.Context, cfg *config.Config, model *config.ModelConfig) ([]string, error) {
	db, err := openSQLite(cfg.Store.SQLitePath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	table, err := sqlhost.Load(ctx, db, model.Name, model.TableName(), sqlhost.WithIDColumn(idColumn(model, cfg.Store.Backend)))
	if err != nil {
		return nil, err
	}
	return table.Schema(), nil
}
