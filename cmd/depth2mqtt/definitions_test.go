package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acheta/depth2mqtt/internal/configuration"
	"github.com/acheta/depth2mqtt/internal/definition"
	"github.com/acheta/depth2mqtt/internal/devices"
	"github.com/acheta/depth2mqtt/internal/registry"
)

func TestWriteDefinitionsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	for _, format := range []string{"json", "yaml"} {
		var buf bytes.Buffer
		require.NoError(t, writeDefinitions(&buf, format, devices.Builtin()))

		filename := filepath.Join(dir, "export."+format)
		require.NoError(t, os.WriteFile(filename, buf.Bytes(), 0o644))

		defs, err := registry.ReadFile(filename)
		require.NoError(t, err, format)
		require.Len(t, defs, 1)
		assert.Equal(t, devices.DepthSensor(), defs[0], format)
	}
}

func TestWriteDefinitionsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, writeDefinitions(&buf, "xml", []definition.Definition{devices.DepthSensor()}))
}

func TestNewRegistryWithDirectory(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	override := devices.DepthSensor()
	override.Description = "Local override"
	require.NoError(t, writeDefinitions(&buf, "yaml", []definition.Definition{override}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "depth.yaml"), buf.Bytes(), 0o644))

	reg, err := newRegistry(configuration.DefinitionsConfiguration{Directory: dir, Strict: true})
	require.NoError(t, err)

	def, ok := reg.Find("Depth.Sensor")
	require.True(t, ok)
	assert.Equal(t, "Local override", def.Description)
	assert.Len(t, reg.All(), 1)
}
