package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
)

// ModelConfig declares the watched fields of one model.
//
//	models:
//	  - name: Person
//	    table: people
//	    default_reaction: onPersonChanged
//	    watch:
//	      age: changeAge
//	      status: changeStatus
//	      flag: true
type ModelConfig struct {
	Name            string    `yaml:"name"`
	Table           string    `yaml:"table"`
	IDColumn        string    `yaml:"id_column"`
	ObjectIDs       bool      `yaml:"object_ids"` // mongodb: ids are hex ObjectIDs
	Presence        string    `yaml:"presence"`
	DefaultReaction string    `yaml:"default_reaction"`
	Watch           WatchList `yaml:"watch"`
}

// Validate checks the presence rule, that at least one field is watched and
// that no field reaction reuses the default reaction's name.
func (m *ModelConfig) Validate() error {
	spec, err := m.WatchSpec()
	if err != nil {
		return err
	}
	if len(m.Watch) == 0 {
		return fmt.Errorf("%w: model %s watches no fields", ErrInvalidConfig, m.Name)
	}
	for _, problem := range spec.Validate(nil, nil) {
		if errors.Is(problem, domain.ErrReactionConflict) {
			return fmt.Errorf("%w: model %s: %w", ErrInvalidConfig, m.Name, problem)
		}
	}
	return nil
}

// WatchSpec converts the configuration into a domain.WatchSpec.
func (m *ModelConfig) WatchSpec() (*domain.WatchSpec, error) {
	rule, err := domain.ParsePresenceRule(m.Presence)
	if err != nil {
		return nil, fmt.Errorf("%w: model %s: %w", ErrInvalidConfig, m.Name, err)
	}
	return domain.NewWatchSpec(m.Name, m.Watch,
		domain.WithDefaultReaction(m.DefaultReaction),
		domain.WithPresenceRule(rule),
	), nil
}

// TableName returns Table, falling back to the model name.
func (m *ModelConfig) TableName() string {
	if m.Table != "" {
		return m.Table
	}
	return m.Name
}

// WatchList is the ordered watch declaration. It decodes either a mapping of
// field to reaction name (true selects the default reaction, false leaves the
// field unwatched) or a plain list of fields, all using the default reaction.
type WatchList []domain.Watch

// UnmarshalYAML keeps the document order of the mapping.
func (l *WatchList) UnmarshalYAML(node *yaml.Node) error {
	var watches []domain.Watch

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if key.Kind != yaml.ScalarNode || key.Value == "" {
				return fmt.Errorf("line %d: watched field must be a non-empty name", key.Line)
			}
			if value.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: field %s: expected a reaction name or true", value.Line, key.Value)
			}

			if value.Tag == "!!bool" {
				var on bool
				if err := value.Decode(&on); err != nil {
					return err
				}
				if on {
					watches = append(watches, domain.Watch{Field: key.Value, Default: true})
				}
				continue
			}
			if value.Tag != "!!str" || value.Value == "" {
				return fmt.Errorf("line %d: field %s: expected a reaction name or true", value.Line, key.Value)
			}
			watches = append(watches, domain.Watch{Field: key.Value, Reaction: value.Value})
		}

	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode || item.Value == "" {
				return fmt.Errorf("line %d: watched field must be a non-empty name", item.Line)
			}
			watches = append(watches, domain.Watch{Field: item.Value, Default: true})
		}

	default:
		return fmt.Errorf("line %d: watch must be a mapping or a list", node.Line)
	}

	*l = watches
	return nil
}
