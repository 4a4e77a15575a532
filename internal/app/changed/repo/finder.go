package repo

// DefaultIDColumn is the primary key column finders read and filter on.
const DefaultIDColumn = "id"

// FinderOption configures a record finder.
type FinderOption func(*finderConfig)

type finderConfig struct {
	idColumn string
}

// WithIDColumn sets the primary key column (or document field) name.
func WithIDColumn(name string) FinderOption {
	return func(c *finderConfig) {
		if name != "" {
			c.idColumn = name
		}
	}
}

func newFinderConfig(defaultID string, opts []FinderOption) finderConfig {
	cfg := finderConfig{idColumn: defaultID}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// selectColumns returns the id column followed by fields.
func selectColumns(idColumn string, fields []string) []string {
	cols := make([]string, 0, len(fields)+1)
	cols = append(cols, idColumn)
	for _, f := range fields {
		if f != idColumn {
			cols = append(cols, f)
		}
	}
	return cols
}
