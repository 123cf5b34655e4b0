package devices

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acheta/depth2mqtt/internal/definition"
	"github.com/acheta/depth2mqtt/internal/zcldef"
)

func TestBuiltinDefinitionsAreValid(t *testing.T) {
	for _, d := range Builtin() {
		assert.NoError(t, d.Validate(), d.Model)
	}
}

func TestDepthSensorIdentification(t *testing.T) {
	require.NotEmpty(t, DepthSensor().ZigbeeModel)
	for _, m := range DepthSensor().ZigbeeModel {
		assert.NotEmpty(t, m)
	}

	assert.True(t, DepthSensor().Matches("Depth.Sensor"))
	assert.False(t, DepthSensor().Matches("Other.Sensor"))
	assert.Equal(t, "Acheta", DepthSensor().Vendor)
	assert.Empty(t, DepthSensor().Meta)
}

func TestDepthSensorCapabilities(t *testing.T) {
	require.Len(t, DepthSensor().Capabilities, 4)

	assert.Equal(t, definition.Identify{}, DepthSensor().Capabilities[0])
	assert.Equal(t, definition.Light{Color: true}, DepthSensor().Capabilities[1])
	assert.Equal(t, definition.Temperature{}, DepthSensor().Capabilities[2])

	depth, ok := DepthSensor().Numeric("depth")
	require.True(t, ok)
	assert.Equal(t, "cm", depth.Unit)
	assert.LessOrEqual(t, depth.ValueMin, depth.ValueMax)
	assert.True(t, depth.Access.Valid())
	assert.LessOrEqual(t, depth.Reporting.Min, depth.Reporting.Max)
	assert.Equal(t, uint16(10), depth.Reporting.Min.Seconds())
	assert.Equal(t, uint16(3600), depth.Reporting.Max.Seconds())
}

func TestDepthSensorRejectsRaisedMinimum(t *testing.T) {
	depth, _ := DepthSensor().Numeric("depth")
	depth.ValueMin = 700

	assert.Error(t, depth.Validate())
	assert.NoError(t, DepthSensor().Validate())
}

func TestDepthSensorAttributeIsKnown(t *testing.T) {
	depth, _ := DepthSensor().Numeric("depth")

	_, attr, err := zcldef.Default().ResolveAttribute(depth.Cluster, depth.Attribute)
	require.NoError(t, err)
	assert.Equal(t, zcldef.TypeFloatSingle, attr.Type)
}

func TestDepthSensorRoundTrip(t *testing.T) {
	buf, err := json.Marshal(DepthSensor())
	require.NoError(t, err)

	var parsed definition.Definition
	require.NoError(t, json.Unmarshal(buf, &parsed))
	assert.Equal(t, DepthSensor(), parsed)
}

func TestDepthSensorIsFresh(t *testing.T) {
	d := Builtin()[0]
	d.ZigbeeModel[0] = "Changed"
	depth, _ := d.Numeric("depth")
	depth.Reporting.Min = definition.IntervalHour

	assert.Equal(t, []string{"Depth.Sensor"}, DepthSensor().ZigbeeModel)
	depth, _ = DepthSensor().Numeric("depth")
	assert.Equal(t, definition.Interval10Seconds, depth.Reporting.Min)
}
