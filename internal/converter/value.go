package converter

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/acheta/depth2mqtt/internal/utils/reflector"
	"github.com/acheta/depth2mqtt/internal/zcldef"
)

// ZCLValue converts v into the Go type the ZCL codec uses for dataType.
func ZCLValue(dataType byte, v float64) (interface{}, error) {
	switch {
	case dataType == zcldef.TypeBoolean:
		return v != 0, nil
	case dataType >= zcldef.TypeBitmap8 && dataType <= 0x1f:
		return reflector.ConvertType(v, reflect.Uint64)
	case dataType >= zcldef.TypeUnsignedInt8 && dataType <= 0x27:
		return reflector.ConvertType(v, reflect.Uint64)
	case dataType >= zcldef.TypeSignedInt8 && dataType <= 0x2f:
		return reflector.ConvertType(v, reflect.Int64)
	case dataType == zcldef.TypeEnum8:
		return reflector.ConvertType(v, reflect.Uint8)
	case dataType == zcldef.TypeEnum16:
		return reflector.ConvertType(v, reflect.Uint16)
	case dataType == zcldef.TypeFloatSingle:
		return float32(v), nil
	case dataType == 0x3a:
		return v, nil
	}

	return nil, fmt.Errorf("unsupported ZCL data type 0x%02x", dataType)
}

// number reads a decoded attribute value as float64. Single precision
// values are widened through their shortest decimal form so 12.3 stays 12.3.
func number(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float32:
		f, err := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'g', -1, 32), 64)
		return f, err == nil
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}

	return reflector.ToFloat64(value)
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
