package converter

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/acheta/depth2mqtt/internal/definition"
	"github.com/acheta/depth2mqtt/internal/types"
)

type attributeRef struct {
	clusterID   uint16
	attributeID uint16
}

// readableAttributes maps every property that can be read back from the
// device to its attributes.
func (c *Converter) readableAttributes(def definition.Definition) map[string][]attributeRef {
	ret := make(map[string][]attributeRef)

	for _, capability := range def.Capabilities {
		switch capability := capability.(type) {
		case definition.Light:
			ret["state"] = []attributeRef{{ClusterOnOff, AttrOnOff}}
			ret["brightness"] = []attributeRef{{ClusterLevel, AttrCurrentLevel}}
			if capability.Color {
				ret["color"] = []attributeRef{{ClusterColor, AttrCurrentX}, {ClusterColor, AttrCurrentY}}
			}
			if capability.PowerOnBehavior {
				ret["power_on_behavior"] = []attributeRef{{ClusterOnOff, AttrStartUpOnOff}}
			}
		case definition.Temperature:
			ret["temperature"] = []attributeRef{{ClusterTemperature, AttrMeasuredValue}}
		case definition.Numeric:
			if !capability.Access.CanGet() {
				continue
			}
			na, err := c.resolveNumeric(capability)
			if err != nil {
				continue
			}
			ret[capability.Name] = []attributeRef{{na.clusterID, na.attribute.ID}}
		}
	}

	return ret
}

// ReadRequests builds one read attributes request per cluster for the given
// properties, or for every readable property when none are given.
func (c *Converter) ReadRequests(ieeeAddress uint64, endpoint uint8, def definition.Definition, properties []string) ([]types.DeviceGetMessage, error) {
	readable := c.readableAttributes(def)

	all := len(properties) == 0
	if all {
		for _, e := range def.Exposes() {
			properties = append(properties, exposedProperties(e)...)
		}
	}

	var (
		ret     []types.DeviceGetMessage
		byIndex = make(map[uint16]int)
		errs    error
	)

	for _, p := range properties {
		refs, ok := readable[p]
		if !ok {
			if all {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("%v: cannot be read", p))
			continue
		}

		for _, ref := range refs {
			idx, ok := byIndex[ref.clusterID]
			if !ok {
				idx = len(ret)
				byIndex[ref.clusterID] = idx
				ret = append(ret, types.DeviceGetMessage{
					IEEEAddress: ieeeAddress,
					ClusterID:   ref.clusterID,
					Endpoint:    endpoint,
				})
			}
			if !containsAttribute(ret[idx].Attributes, ref.attributeID) {
				ret[idx].Attributes = append(ret[idx].Attributes, ref.attributeID)
			}
		}
	}

	return ret, errs
}

func exposedProperties(e definition.Expose) []string {
	if e.Property != "" {
		return []string{e.Property}
	}

	var ret []string
	for _, f := range e.Features {
		ret = append(ret, exposedProperties(f)...)
	}

	return ret
}

func containsAttribute(attrs []uint16, id uint16) bool {
	for _, a := range attrs {
		if a == id {
			return true
		}
	}

	return false
}
