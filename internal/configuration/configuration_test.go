package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
znetworkconfiguration:
  panid: 9945
  channel: 15
mqttconfiguration:
  address: localhost
  username: user
serialconfiguration:
  portname: /dev/ttyUSB0
definitions:
  directory: ./definitions
  strict: true
permitjoin: true
loglevel: debug
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(testConfig))
	require.NoError(t, err)

	assert.Equal(t, uint16(9945), cfg.ZNetworkConfiguration.PANID)
	assert.Equal(t, uint8(15), cfg.ZNetworkConfiguration.Channel)
	assert.Equal(t, "localhost", cfg.MqttConfiguration.Address)
	assert.Equal(t, uint16(1883), cfg.MqttConfiguration.Port)
	assert.Equal(t, "depth2mqtt", cfg.MqttConfiguration.RootTopic)
	assert.Equal(t, uint32(115200), cfg.SerialConfiguration.BaudRate)
	assert.Equal(t, "./definitions", cfg.Definitions.Directory)
	assert.True(t, cfg.Definitions.Strict)
	assert.True(t, cfg.PermitJoin)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "./data", cfg.DataDirectory)
	assert.False(t, cfg.Api.Enabled)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("permitjoinn: true\n"))
	assert.Error(t, err)
}

func TestInitAndUpdate(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "configuration.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(testConfig), 0644))

	service, err := Init(filename)
	require.NoError(t, err)
	assert.Equal(t, filename, service.Filename())

	cfg := service.GetConfiguration()
	cfg.PermitJoin = false
	require.NoError(t, service.Update(cfg))
	assert.False(t, service.GetConfiguration().PermitJoin)

	reloaded, err := Init(filename)
	require.NoError(t, err)
	assert.False(t, reloaded.GetConfiguration().PermitJoin)
	assert.Equal(t, uint16(9945), reloaded.GetConfiguration().ZNetworkConfiguration.PANID)
}

func TestInitMissingFile(t *testing.T) {
	_, err := Init(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestExampleConfigurationParses(t *testing.T) {
	buf, err := os.ReadFile("../../configuration.example.yaml")
	require.NoError(t, err)

	cfg, err := Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", cfg.SerialConfiguration.PortName)
	assert.True(t, cfg.Api.Enabled)
	assert.Equal(t, "info", cfg.LogLevel)
}
