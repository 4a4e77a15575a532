package detect_changes

import (
	"context"
	"log/slog"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
)

// Request contains the update to inspect.
type Request struct {
	Target domain.UpdateTarget
	Skip   domain.SkipDirective
}

// Interactor resolves prior state and diffs it against the proposed values.
type Interactor struct {
	spec     *domain.WatchSpec
	resolver *Resolver
	logger   *slog.Logger
}

// NewInteractor creates a new change detection interactor.
func NewInteractor(spec *domain.WatchSpec, finder contracts.RecordFinder, logger *slog.Logger) *Interactor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interactor{
		spec:     spec,
		resolver: NewResolver(finder),
		logger:   logger,
	}
}

// Execute returns the watched fields that will change for every targeted
// record. Resolution and query failures are returned and must abort the save.
func (i *Interactor) Execute(ctx context.Context, req *Request) (domain.PerRecordDiff, error) {
	if req.Skip.All() {
		return domain.PerRecordDiff{}, nil
	}

	fields := i.fields(req.Skip)
	if len(fields) == 0 {
		return domain.PerRecordDiff{}, nil
	}

	snapshots, err := i.resolver.Resolve(ctx, req.Target, fields, i.spec.Presence())
	if err != nil {
		return nil, err
	}

	diffs := domain.DiffAll(snapshots, req.Target.Proposed(), fields, i.spec.Presence())

	i.logger.DebugContext(ctx, "changes detected",
		"model", i.spec.Model(),
		"candidates", len(snapshots),
		"changed_records", len(diffs),
	)
	return diffs, nil
}

// fields returns the watched fields not suppressed by skip.
func (i *Interactor) fields(skip domain.SkipDirective) []string {
	all := i.spec.Fields()
	out := make([]string, 0, len(all))
	for _, f := range all {
		if !skip.Skips(f) {
			out = append(out, f)
		}
	}
	return out
}
