package definition

import (
	"encoding/json"
	"fmt"
)

// document is the on-disk shape of a definition, the same layout zigbee2mqtt
// uses for external definitions.
type document struct {
	ZigbeeModel []string               `json:"zigbeeModel" yaml:"zigbeeModel"`
	Model       string                 `json:"model" yaml:"model"`
	Vendor      string                 `json:"vendor" yaml:"vendor"`
	Description string                 `json:"description" yaml:"description"`
	Extend      []capabilityDocument   `json:"extend" yaml:"extend"`
	Meta        map[string]interface{} `json:"meta" yaml:"meta"`
}

type capabilityDocument struct {
	Type Kind `json:"type" yaml:"type"`

	Color           *bool `json:"color,omitempty" yaml:"color,omitempty"`
	Effect          *bool `json:"effect,omitempty" yaml:"effect,omitempty"`
	PowerOnBehavior *bool `json:"powerOnBehavior,omitempty" yaml:"powerOnBehavior,omitempty"`

	Name        string           `json:"name,omitempty" yaml:"name,omitempty"`
	Cluster     string           `json:"cluster,omitempty" yaml:"cluster,omitempty"`
	Attribute   string           `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Reporting   *ReportingPolicy `json:"reporting,omitempty" yaml:"reporting,omitempty"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Unit        string           `json:"unit,omitempty" yaml:"unit,omitempty"`
	ValueMin    *float64         `json:"valueMin,omitempty" yaml:"valueMin,omitempty"`
	ValueMax    *float64         `json:"valueMax,omitempty" yaml:"valueMax,omitempty"`
	Access      *Access          `json:"access,omitempty" yaml:"access,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}

	return *p
}

func toDocument(d Definition) (document, error) {
	doc := document{
		ZigbeeModel: d.ZigbeeModel,
		Model:       d.Model,
		Vendor:      d.Vendor,
		Description: d.Description,
		Extend:      make([]capabilityDocument, 0, len(d.Capabilities)),
		Meta:        d.Meta,
	}

	for i, c := range d.Capabilities {
		cd := capabilityDocument{}
		switch c := c.(type) {
		case Identify:
			cd.Type = KindIdentify
		case Light:
			cd.Type = KindLight
			cd.Color = boolPtr(c.Color)
			cd.Effect = boolPtr(c.Effect)
			cd.PowerOnBehavior = boolPtr(c.PowerOnBehavior)
		case Temperature:
			cd.Type = KindTemperature
		case Numeric:
			access := c.Access
			cd.Type = KindNumeric
			cd.Name = c.Name
			cd.Cluster = c.Cluster
			cd.Attribute = c.Attribute
			cd.Reporting = c.Reporting
			cd.Description = c.Description
			cd.Unit = c.Unit
			cd.ValueMin = floatPtr(c.ValueMin)
			cd.ValueMax = floatPtr(c.ValueMax)
			cd.Access = &access
		default:
			return document{}, fmt.Errorf("capability %d: unsupported type %T", i, c)
		}
		doc.Extend = append(doc.Extend, cd)
	}

	return doc, nil
}

func fromDocument(doc document) (Definition, error) {
	d := Definition{
		ZigbeeModel:  doc.ZigbeeModel,
		Model:        doc.Model,
		Vendor:       doc.Vendor,
		Description:  doc.Description,
		Capabilities: make([]Capability, 0, len(doc.Extend)),
		Meta:         doc.Meta,
	}

	for i, cd := range doc.Extend {
		switch cd.Type {
		case KindIdentify:
			d.Capabilities = append(d.Capabilities, Identify{})
		case KindLight:
			d.Capabilities = append(d.Capabilities, Light{
				Color:           deref(cd.Color),
				Effect:          deref(cd.Effect),
				PowerOnBehavior: deref(cd.PowerOnBehavior),
			})
		case KindTemperature:
			d.Capabilities = append(d.Capabilities, Temperature{})
		case KindNumeric:
			if cd.ValueMin == nil || cd.ValueMax == nil || cd.Access == nil {
				return Definition{}, fmt.Errorf("extend[%d]: numeric %q needs valueMin, valueMax and access", i, cd.Name)
			}
			d.Capabilities = append(d.Capabilities, Numeric{
				Name:        cd.Name,
				Cluster:     cd.Cluster,
				Attribute:   cd.Attribute,
				Reporting:   cd.Reporting,
				Description: cd.Description,
				Unit:        cd.Unit,
				ValueMin:    *cd.ValueMin,
				ValueMax:    *cd.ValueMax,
				Access:      *cd.Access,
			})
		default:
			return Definition{}, fmt.Errorf("extend[%d]: unknown capability type %q", i, cd.Type)
		}
	}

	return d, nil
}

func (d Definition) MarshalJSON() ([]byte, error) {
	doc, err := toDocument(d)
	if err != nil {
		return nil, err
	}

	return json.Marshal(doc)
}

func (d *Definition) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	parsed, err := fromDocument(doc)
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}

func (d Definition) MarshalYAML() (interface{}, error) {
	return toDocument(d)
}

func (d *Definition) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var doc document
	if err := unmarshal(&doc); err != nil {
		return err
	}

	parsed, err := fromDocument(doc)
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}
