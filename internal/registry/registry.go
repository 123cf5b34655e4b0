package registry

import (
	"fmt"
	"sync"

	"github.com/acheta/depth2mqtt/internal/definition"
	"github.com/acheta/depth2mqtt/internal/logger"
)

type Options struct {
	// Strict makes Add fail on an invalid definition instead of skipping it.
	Strict bool
}

// Registry routes device model identifiers to definitions.
type Registry struct {
	mu          sync.RWMutex
	definitions []definition.Definition
	byModel     map[string]int
	options     Options
	logger      logger.Logger
}

func New(options Options) *Registry {
	return &Registry{
		byModel: make(map[string]int),
		options: options,
		logger:  logger.GetLogger("[Registry]"),
	}
}

// Add registers definitions in order. A definition claiming an already
// registered model identifier takes it over.
func (r *Registry) Add(defs ...definition.Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range defs {
		if err := d.Validate(); err != nil {
			if r.options.Strict {
				return fmt.Errorf("invalid definition: %w", err)
			}
			r.logger.Warn("Skipping invalid definition: %v", err)
			continue
		}

		idx := len(r.definitions)
		r.definitions = append(r.definitions, d.Clone())

		for _, m := range d.ZigbeeModel {
			if prev, ok := r.byModel[m]; ok {
				r.logger.Warn("Model '%v' of definition '%v' overrides definition '%v'", m, d.Model, r.definitions[prev].Model)
			}
			r.byModel[m] = idx
		}

		r.logger.Debug("Registered definition '%v' (%v) for models %v", d.Model, d.Vendor, d.ZigbeeModel)
	}

	return nil
}

// Find returns the definition handling a device that announces model.
func (r *Registry) Find(model string) (definition.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byModel[model]
	if !ok {
		return definition.Definition{}, false
	}

	return r.definitions[idx].Clone(), true
}

// All returns the definitions that still own at least one model identifier.
func (r *Registry) All() []definition.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make(map[int]bool, len(r.byModel))
	for _, idx := range r.byModel {
		active[idx] = true
	}

	ret := make([]definition.Definition, 0, len(active))
	for idx, d := range r.definitions {
		if active[idx] {
			ret = append(ret, d.Clone())
		}
	}

	return ret
}
