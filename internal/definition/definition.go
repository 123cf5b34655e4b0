package definition

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Definition tells the gateway how to talk to one device model: which
// hardware model identifiers select it and which capabilities it has.
// Definitions are built once at load time and only read afterwards.
type Definition struct {
	ZigbeeModel  []string
	Model        string
	Vendor       string
	Description  string
	Capabilities []Capability
	Meta         map[string]interface{}
}

// Matches reports whether a device announcing model is handled by this definition.
func (d Definition) Matches(model string) bool {
	for _, m := range d.ZigbeeModel {
		if m == model {
			return true
		}
	}

	return false
}

// Clone returns a copy of d that shares no slices, maps or pointers with it.
func (d Definition) Clone() Definition {
	ret := d
	ret.ZigbeeModel = append([]string(nil), d.ZigbeeModel...)

	if d.Capabilities != nil {
		ret.Capabilities = make([]Capability, len(d.Capabilities))
		for i, c := range d.Capabilities {
			if n, ok := c.(Numeric); ok && n.Reporting != nil {
				policy := *n.Reporting
				n.Reporting = &policy
				c = n
			}
			ret.Capabilities[i] = c
		}
	}

	if d.Meta != nil {
		ret.Meta = make(map[string]interface{}, len(d.Meta))
		for k, v := range d.Meta {
			ret.Meta[k] = v
		}
	}

	return ret
}

func (d Definition) Validate() error {
	var err error

	if len(d.ZigbeeModel) == 0 {
		err = multierr.Append(err, errors.New("zigbeeModel is empty"))
	}
	for i, m := range d.ZigbeeModel {
		if m == "" {
			err = multierr.Append(err, fmt.Errorf("zigbeeModel[%d] is empty", i))
		}
	}
	if d.Model == "" {
		err = multierr.Append(err, errors.New("model is empty"))
	}
	if d.Vendor == "" {
		err = multierr.Append(err, errors.New("vendor is empty"))
	}
	if d.Description == "" {
		err = multierr.Append(err, errors.New("description is empty"))
	}

	seen := make(map[string]bool)
	for i, c := range d.Capabilities {
		if c == nil {
			err = multierr.Append(err, fmt.Errorf("capability %d is nil", i))
			continue
		}
		if cerr := c.Validate(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("capability %d (%v): %w", i, c.Kind(), cerr))
		}
		for _, p := range properties(c.Exposes()) {
			if seen[p] {
				err = multierr.Append(err, fmt.Errorf("property %q is exposed twice", p))
			}
			seen[p] = true
		}
	}

	if err != nil {
		return fmt.Errorf("definition %q: %w", d.Model, err)
	}

	return nil
}

func (d Definition) Exposes() []Expose {
	ret := make([]Expose, 0, len(d.Capabilities))
	for _, c := range d.Capabilities {
		ret = append(ret, c.Exposes()...)
	}

	return ret
}

// Light returns the light capability, if the definition has one.
func (d Definition) Light() (Light, bool) {
	for _, c := range d.Capabilities {
		if l, ok := c.(Light); ok {
			return l, true
		}
	}

	return Light{}, false
}

// Numeric returns the numeric capability publishing under name.
func (d Definition) Numeric(name string) (Numeric, bool) {
	for _, c := range d.Capabilities {
		if n, ok := c.(Numeric); ok && n.Name == name {
			return n, true
		}
	}

	return Numeric{}, false
}

func (d Definition) Has(kind Kind) bool {
	for _, c := range d.Capabilities {
		if c.Kind() == kind {
			return true
		}
	}

	return false
}
