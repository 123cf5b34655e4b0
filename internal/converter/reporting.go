package converter

import (
	"fmt"

	"github.com/acheta/depth2mqtt/internal/definition"
	"github.com/acheta/depth2mqtt/internal/types"
	"github.com/acheta/depth2mqtt/internal/zcldef"
)

// Reporting lists the attribute reporting the device has to be configured
// with so its state stays current without polling.
func (c *Converter) Reporting(def definition.Definition) ([]types.ReportingConfiguration, error) {
	var ret []types.ReportingConfiguration

	add := func(clusterID, attributeID uint16, dataType byte, policy definition.ReportingPolicy) {
		ret = append(ret, types.ReportingConfiguration{
			ClusterID:   clusterID,
			AttributeID: attributeID,
			DataType:    dataType,
			Min:         policy.Min.Seconds(),
			Max:         policy.Max.Seconds(),
			Change:      policy.Change,
		})
	}

	for _, capability := range def.Capabilities {
		switch capability := capability.(type) {
		case definition.Light:
			add(ClusterOnOff, AttrOnOff, zcldef.TypeBoolean, definition.DefaultOnOffReporting)
			add(ClusterLevel, AttrCurrentLevel, zcldef.TypeUnsignedInt8, definition.DefaultBrightnessReporting)
			if capability.Color {
				add(ClusterColor, AttrCurrentX, zcldef.TypeUnsignedInt16, definition.DefaultColorReporting)
				add(ClusterColor, AttrCurrentY, zcldef.TypeUnsignedInt16, definition.DefaultColorReporting)
			}
		case definition.Temperature:
			add(ClusterTemperature, AttrMeasuredValue, zcldef.TypeSignedInt16, definition.DefaultTemperatureReporting)
		case definition.Numeric:
			if capability.Reporting == nil {
				continue
			}
			na, err := c.resolveNumeric(capability)
			if err != nil {
				return nil, fmt.Errorf("numeric %q: %w", capability.Name, err)
			}
			add(na.clusterID, na.attribute.ID, na.attribute.Type, *capability.Reporting)
		}
	}

	return ret, nil
}

// Clusters returns the distinct clusters of the reporting configurations, in order.
func Clusters(reporting []types.ReportingConfiguration) []uint16 {
	seen := make(map[uint16]bool)

	var ret []uint16
	for _, r := range reporting {
		if !seen[r.ClusterID] {
			seen[r.ClusterID] = true
			ret = append(ret, r.ClusterID)
		}
	}

	return ret
}
