package converter

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/acheta/depth2mqtt/internal/definition"
	"github.com/acheta/depth2mqtt/internal/types"
	"github.com/acheta/depth2mqtt/internal/zcldef"
)

// Commands is what a set payload turns into: local cluster commands and
// attribute writes, in the order they should be sent.
type Commands struct {
	Local  []types.DeviceCommandMessage
	Writes []types.DeviceWriteMessage
}

func (c Commands) Empty() bool {
	return len(c.Local) == 0 && len(c.Writes) == 0
}

type setTarget struct {
	ieeeAddress    uint64
	endpoint       uint8
	transitionTime uint16
}

func (t setTarget) command(clusterID uint16, commandID uint8, data map[string]interface{}) types.DeviceCommandMessage {
	return types.DeviceCommandMessage{
		IEEEAddress:       t.ieeeAddress,
		ClusterID:         clusterID,
		Endpoint:          t.endpoint,
		CommandIdentifier: commandID,
		CommandData:       data,
	}
}

func (t setTarget) write(clusterID uint16, attr types.AttributeValue) types.DeviceWriteMessage {
	return types.DeviceWriteMessage{
		IEEEAddress: t.ieeeAddress,
		ClusterID:   clusterID,
		Endpoint:    t.endpoint,
		Attributes:  []types.AttributeValue{attr},
	}
}

const maxTransitionSeconds = float64(0xfffe) / 10

// ToCommands converts a set payload such as {"state": "ON", "brightness": 100}.
// Properties that cannot be set are reported in the error while the valid
// ones are still converted.
func (c *Converter) ToCommands(ieeeAddress uint64, endpoint uint8, def definition.Definition, payload map[string]interface{}) (Commands, error) {
	target := setTarget{
		ieeeAddress: ieeeAddress,
		endpoint:    endpoint,
	}

	if v, ok := payload["transition"]; ok {
		seconds, ok := number(v)
		if !ok || seconds < 0 {
			return Commands{}, fmt.Errorf("transition must be a positive number of seconds")
		}
		// 0xffff means "use the device default" in the level and color clusters.
		if seconds > maxTransitionSeconds {
			return Commands{}, fmt.Errorf("transition %v exceeds %v seconds", seconds, maxTransitionSeconds)
		}
		target.transitionTime = uint16(math.Round(seconds * 10))
	}

	var (
		ret  Commands
		errs error
	)

	for _, property := range orderedProperties(payload) {
		if err := c.convertProperty(target, def, property, payload[property], &ret); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%v: %w", property, err))
		}
	}

	return ret, errs
}

func orderedProperties(payload map[string]interface{}) []string {
	ret := make([]string, 0, len(payload))
	for k := range payload {
		if k != "state" && k != "transition" {
			ret = append(ret, k)
		}
	}
	sort.Strings(ret)

	if _, ok := payload["state"]; ok {
		ret = append([]string{"state"}, ret...)
	}

	return ret
}

func (c *Converter) convertProperty(target setTarget, def definition.Definition, property string, value interface{}, ret *Commands) error {
	light, hasLight := def.Light()

	switch property {
	case "state":
		if !hasLight {
			return errUnsupported
		}
		cmd, err := onOffCommand(value)
		if err != nil {
			return err
		}
		ret.Local = append(ret.Local, target.command(ClusterOnOff, cmd, map[string]interface{}{}))
		return nil
	case "brightness":
		if !hasLight {
			return errUnsupported
		}
		level, ok := number(value)
		if !ok || level < definition.BrightnessMin || level > definition.BrightnessMax {
			return fmt.Errorf("expected a number between %d and %d", definition.BrightnessMin, definition.BrightnessMax)
		}
		ret.Local = append(ret.Local, target.command(ClusterLevel, CommandMoveToLevelWithOnOff, map[string]interface{}{
			"Level":          level,
			"TransitionTime": target.transitionTime,
		}))
		return nil
	case "color":
		if !hasLight || !light.Color {
			return errUnsupported
		}
		x, y, err := colorXY(value)
		if err != nil {
			return err
		}
		ret.Local = append(ret.Local, target.command(ClusterColor, CommandMoveToColor, map[string]interface{}{
			"ColorX":         x * 65535,
			"ColorY":         y * 65535,
			"TransitionTime": target.transitionTime,
		}))
		return nil
	case "effect":
		if !hasLight || !light.Effect {
			return errUnsupported
		}
		name, _ := value.(string)
		id, ok := effectIdentifiers[name]
		if !ok {
			return fmt.Errorf("unknown effect %q, expected one of %v", name, definition.LightEffects)
		}
		ret.Local = append(ret.Local, target.command(ClusterIdentify, CommandTriggerEffect, map[string]interface{}{
			"EffectIdentifier": id,
			"EffectVariant":    0,
		}))
		return nil
	case "power_on_behavior":
		if !hasLight || !light.PowerOnBehavior {
			return errUnsupported
		}
		name, _ := value.(string)
		for id, n := range powerOnBehaviors {
			if n == name {
				ret.Writes = append(ret.Writes, target.write(ClusterOnOff, types.AttributeValue{ID: AttrStartUpOnOff, DataType: zcldef.TypeEnum8, Value: id}))
				return nil
			}
		}
		return fmt.Errorf("unknown power on behavior %q, expected one of %v", name, definition.PowerOnBehaviorValues)
	case "identify":
		if !def.Has(definition.KindIdentify) {
			return errUnsupported
		}
		ret.Writes = append(ret.Writes, target.write(ClusterIdentify, types.AttributeValue{ID: AttrIdentifyTime, DataType: zcldef.TypeUnsignedInt16, Value: uint64(IdentifyDuration)}))
		return nil
	}

	n, ok := def.Numeric(property)
	if !ok {
		return errUnsupported
	}
	if !n.Access.CanSet() {
		return fmt.Errorf("property is read only")
	}

	v, ok := number(value)
	if !ok {
		return fmt.Errorf("expected a number")
	}
	if !n.InRange(v) {
		return fmt.Errorf("%v is outside of [%v, %v]", v, n.ValueMin, n.ValueMax)
	}

	na, err := c.resolveNumeric(n)
	if err != nil {
		return err
	}
	zv, err := ZCLValue(na.attribute.Type, v)
	if err != nil {
		return err
	}

	ret.Writes = append(ret.Writes, target.write(na.clusterID, types.AttributeValue{ID: na.attribute.ID, DataType: na.attribute.Type, Value: zv}))

	return nil
}

var errUnsupported = fmt.Errorf("not supported by this device")

func onOffCommand(value interface{}) (uint8, error) {
	s, _ := value.(string)
	switch strings.ToUpper(s) {
	case "ON":
		return CommandOn, nil
	case "OFF":
		return CommandOff, nil
	case "TOGGLE":
		return CommandToggle, nil
	}

	return 0, fmt.Errorf("expected ON, OFF or TOGGLE, got %v", value)
}

func colorXY(value interface{}) (float64, float64, error) {
	m, ok := value.(map[string]interface{})
	if !ok {
		return 0, 0, fmt.Errorf("expected an object with x and y")
	}

	x, okX := number(m["x"])
	y, okY := number(m["y"])
	if !okX || !okY || x < 0 || x > 1 || y < 0 || y > 1 {
		return 0, 0, fmt.Errorf("x and y must be numbers between 0 and 1")
	}

	return x, y, nil
}
