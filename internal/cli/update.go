package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/app/changed/hooks"
	"github.com/light-bringer/fieldwatch/internal/app/changed/reactions"
	"github.com/light-bringer/fieldwatch/internal/config"
	"github.com/light-bringer/fieldwatch/internal/host/sqlhost"
	"github.com/light-bringer/fieldwatch/internal/pkg/query"
)

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	Set      []string
	Where    []string
	Skip     []string
	SkipAll  bool
	SkipWhen string
	Sink     string
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{}

	cmd := &cobra.Command{
		Use:   "update <model> [id]",
		Short: "Update records in the sqlite store and dispatch their changes",
		Long: `Update one record by id, or every record matching --where, through a
model with change detection attached. Every reaction the model's watch list
names is bound to the chosen sink.

Values are parsed as YAML scalars: age=22 is a number, flag=true a boolean.
The log sink prints changes to stderr; stdout carries only the report.`,
		Example: `  fieldwatch update Person joe --set age=22 --set status=pending
  fieldwatch update Person --where status=active --set status=archived --skip title`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 2 {
				id = args[1]
			}
			return runUpdate(cmd.Context(), rootOpts, opts, args[0], id, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "field=value to write (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "field=value the records must match (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Skip, "skip", nil, "watched field to leave undetected (repeatable)")
	cmd.Flags().BoolVar(&opts.SkipAll, "skip-all", false, "skip change detection for this save")
	cmd.Flags().StringVar(&opts.SkipWhen, "skip-when", "", "CEL expression over field selecting fields to skip")
	cmd.Flags().StringVar(&opts.Sink, "sink", SinkLog, "where reactions deliver (log|nats|outbox)")
	cmd.MarkFlagsMutuallyExclusive("skip", "skip-all", "skip-when")

	return cmd
}

func runUpdate(ctx context.Context, rootOpts *RootOptions, opts *UpdateOptions, modelName, id string, out, sinkOut io.Writer) error {
	cfg := rootOpts.Config
	if cfg.Store.Backend != config.BackendSQLite {
		return fmt.Errorf("update writes through the sqlite store; backend is %s", cfg.Store.Backend)
	}
	model, err := rootOpts.model(modelName)
	if err != nil {
		return err
	}
	spec, err := model.WatchSpec()
	if err != nil {
		return err
	}

	changes, err := parseAssignments(opts.Set)
	if err != nil {
		return err
	}
	where, err := parseAssignments(opts.Where)
	if err != nil {
		return err
	}
	if id != "" && len(where) > 0 {
		return fmt.Errorf("--where cannot be combined with an id")
	}
	skip, err := opts.skipDirective()
	if err != nil {
		return err
	}

	db, err := openSQLite(cfg.Store.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	table, err := sqlhost.Load(ctx, db, model.Name, model.TableName(),
		sqlhost.WithIDColumn(idColumn(model, cfg.Store.Backend)),
		sqlhost.WithLogger(rootOpts.Logger),
	)
	if err != nil {
		return err
	}

	s, err := openSink(ctx, opts.Sink, cfg, rootOpts.Logger, sinkOut)
	if err != nil {
		return err
	}
	defer s.close()

	registry := reactions.NewRegistry()
	if err := bindReactions(registry, spec, s); err != nil {
		return err
	}
	hooks.New(spec, registry,
		hooks.WithLogger(rootOpts.Logger),
		hooks.WithConcurrency(cfg.Dispatch.Concurrency),
	).Attach(table)

	saveOpts := contracts.SaveOptions{Skip: skip}
	var result *sqlhost.Result
	if id != "" {
		result, err = table.UpdateByID(ctx, id, changes, saveOpts)
	} else {
		result, err = table.UpdateAll(ctx, matchAll(where), changes, saveOpts)
	}
	if err != nil {
		return err
	}

	report, _ := hooks.ReportFrom(result.Save)
	view := newReportView(report, result.RowsAffected)
	return printer{format: rootOpts.Format, w: out}.print(view, view.text)
}

func (o *UpdateOptions) skipDirective() (domain.SkipDirective, error) {
	switch {
	case o.SkipAll:
		return domain.SkipAll(), nil
	case o.SkipWhen != "":
		m, err := domain.NewCELMatcher(o.SkipWhen)
		if err != nil {
			return domain.SkipNone(), err
		}
		return domain.SkipMatching(m), nil
	case len(o.Skip) > 0:
		return domain.SkipFields(o.Skip...), nil
	}
	return domain.SkipNone(), nil
}

// parseAssignments parses field=value pairs. Values are decoded as YAML
// scalars; an empty value is the empty string.
func parseAssignments(pairs []string) (domain.FieldValues, error) {
	values := make(domain.FieldValues, len(pairs))
	for _, pair := range pairs {
		field, raw, ok := strings.Cut(pair, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid assignment %q: expected field=value", pair)
		}

		values[field] = scalar(raw)
	}
	return values, nil
}

func scalar(raw string) interface{} {
	if raw == "" {
		return ""
	}
	var v interface{}
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case nil:
		if raw == "null" || raw == "~" {
			return nil
		}
		return raw
	case map[string]interface{}, []interface{}:
		return raw
	}
	return v
}

// matchAll turns equality filters into one condition. No filters match every
// record.
func matchAll(where domain.FieldValues) query.Condition {
	if len(where) == 0 {
		return nil
	}
	fields := make([]string, 0, len(where))
	for f := range where {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	conds := make([]query.Condition, len(fields))
	for i, f := range fields {
		conds[i] = query.Eq(f, where[f])
	}
	return query.And(conds...)
}
