package definition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func depthNumeric() Numeric {
	return testDefinition().Capabilities[3].(Numeric)
}

func TestNumericValidate(t *testing.T) {
	assert.NoError(t, depthNumeric().Validate())
}

func TestNumericRejectsMinAboveMax(t *testing.T) {
	n := depthNumeric()
	n.ValueMin = 700

	assert.Error(t, n.Validate())
}

func TestNumericRejectsNaN(t *testing.T) {
	n := depthNumeric()
	n.ValueMax = math.NaN()

	assert.Error(t, n.Validate())
}

func TestNumericRejectsMissingFields(t *testing.T) {
	err := Numeric{ValueMin: 1, ValueMax: 2, Access: AccessState}.Validate()
	require.Error(t, err)

	for _, msg := range []string{"name is empty", "cluster is empty", "attribute is empty", "unit is empty"} {
		assert.Contains(t, err.Error(), msg)
	}
}

func TestNumericRejectsUnknownAccess(t *testing.T) {
	n := depthNumeric()
	n.Access = 0

	assert.Error(t, n.Validate())

	n.Access = 8
	assert.Error(t, n.Validate())
}

func TestNumericRejectsInvalidReporting(t *testing.T) {
	n := depthNumeric()
	n.Reporting = &ReportingPolicy{Min: IntervalHour, Max: Interval10Seconds, Change: 1}

	assert.Error(t, n.Validate())

	n.Reporting = &ReportingPolicy{Min: IntervalMin, Max: IntervalHour, Change: -1}
	assert.Error(t, n.Validate())
}

func TestNumericWithoutReporting(t *testing.T) {
	n := depthNumeric()
	n.Reporting = nil

	assert.NoError(t, n.Validate())
}

func TestNumericInRange(t *testing.T) {
	n := depthNumeric()

	assert.True(t, n.InRange(20))
	assert.True(t, n.InRange(600))
	assert.True(t, n.InRange(123.5))
	assert.False(t, n.InRange(19.9))
	assert.False(t, n.InRange(700))
}

func TestKinds(t *testing.T) {
	assert.Equal(t, KindIdentify, Identify{}.Kind())
	assert.Equal(t, KindLight, Light{}.Kind())
	assert.Equal(t, KindTemperature, Temperature{}.Kind())
	assert.Equal(t, KindNumeric, Numeric{}.Kind())
}
