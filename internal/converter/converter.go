package converter

import (
	"github.com/acheta/depth2mqtt/internal/definition"
	"github.com/acheta/depth2mqtt/internal/zcldef"
)

// Converter translates between ZCL attributes and commands and the MQTT
// state of devices with a definition.
type Converter struct {
	zclDef zcldef.ZCLDefService
}

func New(zclDef zcldef.ZCLDefService) *Converter {
	return &Converter{
		zclDef: zclDef,
	}
}

type numericAttribute struct {
	numeric   definition.Numeric
	clusterID uint16
	attribute zcldef.AttributeDefinition
}

func (c *Converter) resolveNumeric(n definition.Numeric) (numericAttribute, error) {
	cluster, attr, err := c.zclDef.ResolveAttribute(n.Cluster, n.Attribute)
	if err != nil {
		return numericAttribute{}, err
	}

	return numericAttribute{
		numeric:   n,
		clusterID: cluster.ID,
		attribute: attr,
	}, nil
}
