package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LoadFile reads and validates a single entity definition file.
func LoadFile(path string) (*EntityDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading schema file %s: %w", path, err)
	}

	var entity EntityDefinition
	if err := yaml.Unmarshal(data, &entity); err != nil {
		return nil, fmt.Errorf("error decoding schema file %s: %w", path, err)
	}

	entity.Normalize()
	if err := entity.Validate(); err != nil {
		return nil, fmt.Errorf("schema file %s is invalid: %w", path, err)
	}

	return &entity, nil
}

// LoadDir loads every .yaml/.yml entity definition in the given directory.
// A malformed file fails the whole load so the server never starts with a
// partial entity set.
func LoadDir(dir string, logger *zap.SugaredLogger) ([]*EntityDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading schema directory %s: %w", dir, err)
	}

	var entities []*EntityDefinition
	byPlural := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		entity, err := LoadFile(path)
		if err != nil {
			return nil, err
		}

		if previous, exists := byPlural[entity.Plural]; exists {
			return nil, fmt.Errorf("schema file %s redeclares resource '%s' already defined in %s", path, entity.Plural, previous)
		}
		byPlural[entity.Plural] = path

		logger.Infow("Loaded entity schema",
			"entity", entity.Name,
			"resource", entity.Plural,
			"fields", len(entity.Schema),
			"uniqueFields", entity.UniqueFields)

		entities = append(entities, entity)
	}

	if len(entities) == 0 {
		return nil, fmt.Errorf("no entity schema files found in %s", dir)
	}

	return entities, nil
}
