package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acheta/depth2mqtt/internal/db"
	"github.com/acheta/depth2mqtt/internal/devices"
)

func TestDeviceStateMessagePayload(t *testing.T) {
	msg := DeviceStateMessage{
		IEEEAddress: 1,
		LinkQuality: 52,
		State:       map[string]interface{}{"depth": 123.4},
	}

	buf, err := json.Marshal(msg.Payload())
	require.NoError(t, err)
	assert.JSONEq(t, `{"depth":123.4,"linkquality":52}`, string(buf))
	assert.NotContains(t, msg.State, "linkquality")
}

func TestDefinitionMessage(t *testing.T) {
	buf, err := json.Marshal(NewDefinitionMessage(devices.DepthSensor()))
	require.NoError(t, err)

	var parsed struct {
		Definition struct {
			Model  string `json:"model"`
			Extend []struct {
				Type string `json:"type"`
			} `json:"extend"`
		} `json:"definition"`
		Exposes []struct {
			Property string `json:"property"`
		} `json:"exposes"`
	}
	require.NoError(t, json.Unmarshal(buf, &parsed))

	assert.Equal(t, "Depth.Sensor", parsed.Definition.Model)
	assert.Len(t, parsed.Definition.Extend, 4)
	require.Len(t, parsed.Exposes, 4)
	assert.Equal(t, "depth", parsed.Exposes[3].Property)
}

func TestNewDeviceInfo(t *testing.T) {
	info := NewDeviceInfo(db.Device{
		IEEEAddress: 0x00124b000724ae04,
		ModelID:     "Depth.Sensor",
		Definition:  "Depth.Sensor",
	})

	assert.Equal(t, "0x00124b000724ae04", info.IEEEAddress)
	assert.True(t, info.Supported)
	assert.True(t, info.Interviewed)
	assert.False(t, info.ReportingConfigured)
}

func TestDeviceAttributesReportPayload(t *testing.T) {
	buf, err := json.Marshal(DeviceAttributesReportMessage{
		ClusterID:         0x0402,
		ClusterName:       "msTemperatureMeasurement",
		ClusterAttributes: map[string]interface{}{"measuredValue": 2150},
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"ClusterID":1026,"ClusterName":"msTemperatureMeasurement","ClusterAttributes":{"measuredValue":2150}}`, string(buf))
}
