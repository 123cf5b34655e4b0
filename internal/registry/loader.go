package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/acheta/depth2mqtt/internal/definition"
)

// LoadDir registers every definition file in dir, in file name order.
// Files may hold a single definition or a list of them.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read definitions directory %v: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		defs, err := ReadFile(filepath.Join(dir, name))
		if err != nil {
			if r.options.Strict {
				return err
			}
			r.logger.Warn("Skipping definition file: %v", err)
			continue
		}

		r.logger.Info("Loaded %d definition(s) from %v", len(defs), name)

		if err := r.Add(defs...); err != nil {
			return fmt.Errorf("%v: %w", name, err)
		}
	}

	return nil
}

// ReadFile decodes the definitions in a JSON or YAML file.
func ReadFile(filename string) ([]definition.Definition, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var defs []definition.Definition
	if strings.ToLower(filepath.Ext(filename)) == ".json" {
		defs, err = decodeJSON(buf)
	} else {
		defs, err = decodeYAML(buf)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %v: %w", filename, err)
	}

	return defs, nil
}

func decodeJSON(buf []byte) ([]definition.Definition, error) {
	trimmed := bytes.TrimSpace(buf)

	if bytes.HasPrefix(trimmed, []byte("[")) {
		var defs []definition.Definition
		if err := json.Unmarshal(trimmed, &defs); err != nil {
			return nil, err
		}
		return defs, nil
	}

	var d definition.Definition
	if err := json.Unmarshal(trimmed, &d); err != nil {
		return nil, err
	}

	return []definition.Definition{d}, nil
}

func decodeYAML(buf []byte) ([]definition.Definition, error) {
	var defs []definition.Definition
	if err := yaml.Unmarshal(buf, &defs); err == nil {
		return defs, nil
	}

	var d definition.Definition
	if err := yaml.Unmarshal(buf, &d); err != nil {
		return nil, err
	}

	return []definition.Definition{d}, nil
}
