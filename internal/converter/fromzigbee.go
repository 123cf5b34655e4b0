package converter

import (
	"github.com/acheta/depth2mqtt/internal/definition"
)

// ToState converts attribute values reported for one cluster into state
// properties. Attributes the definition does not describe are dropped.
func (c *Converter) ToState(def definition.Definition, clusterID uint16, attrs map[uint16]interface{}) map[string]interface{} {
	state := make(map[string]interface{})

	for _, capability := range def.Capabilities {
		switch capability := capability.(type) {
		case definition.Light:
			lightState(capability, clusterID, attrs, state)
		case definition.Temperature:
			if clusterID != ClusterTemperature {
				continue
			}
			if v, ok := numberAttr(attrs, AttrMeasuredValue); ok && v != invalidTemperature {
				state["temperature"] = round(v/100, 2)
			}
		case definition.Numeric:
			na, err := c.resolveNumeric(capability)
			if err != nil || na.clusterID != clusterID {
				continue
			}
			if v, ok := numberAttr(attrs, na.attribute.ID); ok {
				state[capability.Name] = v
			}
		}
	}

	return state
}

func lightState(light definition.Light, clusterID uint16, attrs map[uint16]interface{}, state map[string]interface{}) {
	switch clusterID {
	case ClusterOnOff:
		if v, ok := numberAttr(attrs, AttrOnOff); ok {
			if v != 0 {
				state["state"] = "ON"
			} else {
				state["state"] = "OFF"
			}
		}
		if !light.PowerOnBehavior {
			return
		}
		if v, ok := numberAttr(attrs, AttrStartUpOnOff); ok {
			if name, ok := powerOnBehaviors[uint8(v)]; ok {
				state["power_on_behavior"] = name
			}
		}
	case ClusterLevel:
		if v, ok := numberAttr(attrs, AttrCurrentLevel); ok {
			state["brightness"] = v
		}
	case ClusterColor:
		if !light.Color {
			return
		}
		color := make(map[string]interface{})
		if v, ok := numberAttr(attrs, AttrCurrentX); ok {
			color["x"] = round(v/65535, 4)
		}
		if v, ok := numberAttr(attrs, AttrCurrentY); ok {
			color["y"] = round(v/65535, 4)
		}
		if len(color) > 0 {
			state["color"] = color
		}
	}
}

func numberAttr(attrs map[uint16]interface{}, id uint16) (float64, bool) {
	value, ok := attrs[id]
	if !ok {
		return 0, false
	}

	return number(value)
}
