package definition

// Expose describes one feature of a device the way zigbee2mqtt publishes it
// in bridge/devices, so existing frontends can render it.
type Expose struct {
	Type        string      `json:"type"`
	Name        string      `json:"name,omitempty"`
	Property    string      `json:"property,omitempty"`
	Access      uint8       `json:"access,omitempty"`
	Description string      `json:"description,omitempty"`
	Unit        string      `json:"unit,omitempty"`
	ValueMin    *float64    `json:"value_min,omitempty"`
	ValueMax    *float64    `json:"value_max,omitempty"`
	ValueOn     interface{} `json:"value_on,omitempty"`
	ValueOff    interface{} `json:"value_off,omitempty"`
	ValueToggle interface{} `json:"value_toggle,omitempty"`
	Values      []string    `json:"values,omitempty"`
	Features    []Expose    `json:"features,omitempty"`
}

const (
	ExposeBinary    = "binary"
	ExposeNumeric   = "numeric"
	ExposeEnum      = "enum"
	ExposeComposite = "composite"
	ExposeLight     = "light"
)

func numericExpose(name string, access Access, description string) Expose {
	return Expose{
		Type:        ExposeNumeric,
		Name:        name,
		Property:    name,
		Access:      uint8(access),
		Description: description,
	}
}

func (e Expose) withUnit(unit string) Expose {
	e.Unit = unit
	return e
}

func (e Expose) withRange(min, max float64) Expose {
	e.ValueMin = &min
	e.ValueMax = &max
	return e
}

func enumExpose(name string, access Access, values []string, description string) Expose {
	return Expose{
		Type:        ExposeEnum,
		Name:        name,
		Property:    name,
		Access:      uint8(access),
		Values:      values,
		Description: description,
	}
}

// properties lists the state keys an expose tree writes to. Composite
// features are published under the composite's property.
func properties(exposes []Expose) []string {
	var ret []string
	for _, e := range exposes {
		switch {
		case e.Property != "":
			ret = append(ret, e.Property)
		case len(e.Features) > 0:
			ret = append(ret, properties(e.Features)...)
		}
	}

	return ret
}
