package reflector

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertType(t *testing.T) {
	ret, err := ConvertType(float64(200), reflect.Uint16)
	assert.NoError(t, err)
	assert.Equal(t, uint16(200), ret)

	ret, err = ConvertType(float64(-5), reflect.Uint8)
	assert.NoError(t, err)
	assert.Equal(t, uint8(0), ret)

	ret, err = ConvertType(float64(300), reflect.Uint8)
	assert.NoError(t, err)
	assert.Equal(t, uint8(255), ret)

	ret, err = ConvertType(float64(12.6), reflect.Int16)
	assert.NoError(t, err)
	assert.Equal(t, int16(13), ret)

	ret, err = ConvertType(float64(1.5), reflect.Float32)
	assert.NoError(t, err)
	assert.Equal(t, float32(1.5), ret)

	ret, err = ConvertType(true, reflect.Bool)
	assert.NoError(t, err)
	assert.Equal(t, true, ret)

	_, err = ConvertType("on", reflect.Uint8)
	assert.Error(t, err)
}

func TestToFloat64(t *testing.T) {
	for _, v := range []interface{}{uint8(7), int16(7), uint64(7), float32(7), 7} {
		f, ok := ToFloat64(v)
		assert.True(t, ok)
		assert.Equal(t, 7.0, f)
	}

	_, ok := ToFloat64("7")
	assert.False(t, ok)
}

type moveToLevel struct {
	Level          uint8
	TransitionTime uint16
	Label          string
	hidden         uint8
}

func TestSetStructProperties(t *testing.T) {
	var cmd moveToLevel

	SetStructProperties(map[string]interface{}{
		"Level":          float64(128),
		"TransitionTime": 10,
		"Label":          "dim",
		"hidden":         float64(1),
		"Unknown":        float64(1),
	}, &cmd)

	assert.Equal(t, moveToLevel{Level: 128, TransitionTime: 10, Label: "dim"}, cmd)
}

func TestSetStructPropertiesIgnoresNonPointer(t *testing.T) {
	cmd := moveToLevel{}

	assert.NotPanics(t, func() {
		SetStructProperties(map[string]interface{}{"Level": float64(1)}, cmd)
	})
}
