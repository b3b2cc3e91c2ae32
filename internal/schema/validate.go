package schema

import (
	"strings"

	apperrors "mongoprov/internal/errors"
)

const maxCollectionNameBytes = 255

// Validate checks the plan for mistakes the store would reject, or would
// accept in a way that does not match the plan.
func (p *Plan) Validate() error {
	if p == nil || len(p.Collections) == 0 {
		return invalidPlan("plan declares no collections", nil)
	}

	seen := make(map[string]struct{}, len(p.Collections))
	for _, c := range p.Collections {
		if err := validateCollectionName(c.Name); err != nil {
			return err
		}
		if _, dup := seen[c.Name]; dup {
			return invalidPlan("collection declared twice", apperrors.Metadata{"collection": c.Name})
		}
		seen[c.Name] = struct{}{}

		if err := validateIndexes(c); err != nil {
			return err
		}
	}
	return nil
}

func validateCollectionName(name string) error {
	meta := apperrors.Metadata{"collection": name}
	switch {
	case strings.TrimSpace(name) == "":
		return invalidPlan("collection name is empty", meta)
	case strings.ContainsAny(name, "$\x00"):
		return invalidPlan("collection name contains '$' or NUL", meta)
	case strings.HasPrefix(name, "system."):
		return invalidPlan("collection name uses the reserved system. prefix", meta)
	case len(name) > maxCollectionNameBytes:
		return invalidPlan("collection name is too long", meta)
	}
	return nil
}

func validateIndexes(c CollectionSpec) error {
	names := make(map[string]struct{}, len(c.Indexes))
	patterns := make(map[string]struct{}, len(c.Indexes))

	for i, idx := range c.Indexes {
		meta := apperrors.Metadata{"collection": c.Name, "index": i}
		if len(idx.Keys) == 0 {
			return invalidPlan("index has no keys", meta)
		}

		fields := make(map[string]struct{}, len(idx.Keys))
		for _, key := range idx.Keys {
			meta["field"] = key.Field
			if strings.TrimSpace(key.Field) == "" {
				return invalidPlan("index key field is empty", meta)
			}
			if strings.HasPrefix(key.Field, "$") {
				return invalidPlan("index key field starts with '$'", meta)
			}
			if key.Order != Ascending && key.Order != Descending {
				meta["order"] = int(key.Order)
				return invalidPlan("index key order must be 1 or -1", meta)
			}
			if _, dup := fields[key.Field]; dup {
				return invalidPlan("index repeats a field", meta)
			}
			fields[key.Field] = struct{}{}
		}
		delete(meta, "field")

		name := idx.IndexName()
		if _, dup := names[name]; dup {
			meta["name"] = name
			return invalidPlan("index name declared twice", meta)
		}
		names[name] = struct{}{}

		pattern := idx.KeyPattern()
		if _, dup := patterns[pattern]; dup {
			meta["keys"] = pattern
			return invalidPlan("index key pattern declared twice", meta)
		}
		patterns[pattern] = struct{}{}
	}
	return nil
}

func invalidPlan(message string, meta apperrors.Metadata) error {
	return apperrors.ValidationError(apperrors.CodeInvalidPlan, message, nil).
		WithModule("schema").
		WithOperation("schema.Validate").
		WithFields(meta)
}
