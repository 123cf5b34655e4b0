package reflector

import (
	"fmt"
	"math"
	"reflect"
)

// ConvertType converts a decoded JSON value (float64, bool or string) into dstType.
func ConvertType(value interface{}, dstType reflect.Kind) (interface{}, error) {
	switch v := value.(type) {
	case bool:
		if dstType == reflect.Bool {
			return v, nil
		}
	case string:
		if dstType == reflect.String {
			return v, nil
		}
	default:
		f, ok := ToFloat64(value)
		if !ok {
			break
		}
		return convertNumber(f, dstType)
	}

	return nil, fmt.Errorf("cannot convert %T to %v", value, dstType)
}

func convertNumber(f float64, dstType reflect.Kind) (interface{}, error) {
	switch dstType {
	case reflect.Float32:
		return float32(f), nil
	case reflect.Float64:
		return f, nil
	}

	f = math.Round(f)

	switch dstType {
	case reflect.Uint8:
		return uint8(clamp(f, 0, math.MaxUint8)), nil
	case reflect.Uint16:
		return uint16(clamp(f, 0, math.MaxUint16)), nil
	case reflect.Uint32:
		return uint32(clamp(f, 0, math.MaxUint32)), nil
	case reflect.Uint, reflect.Uint64:
		return uint64(clamp(f, 0, math.MaxUint64)), nil
	case reflect.Int8:
		return int8(clamp(f, math.MinInt8, math.MaxInt8)), nil
	case reflect.Int16:
		return int16(clamp(f, math.MinInt16, math.MaxInt16)), nil
	case reflect.Int32:
		return int32(clamp(f, math.MinInt32, math.MaxInt32)), nil
	case reflect.Int, reflect.Int64:
		return int64(clamp(f, math.MinInt64, math.MaxInt64)), nil
	}

	return nil, fmt.Errorf("cannot convert number to %v", dstType)
}

func clamp(f, min, max float64) float64 {
	return math.Max(min, math.Min(max, f))
}

// ToFloat64 widens any Go numeric value.
func ToFloat64(value interface{}) (float64, bool) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}

	return 0, false
}

// SetStructProperties copies values from srcMap into the same-named exported
// fields of the struct dst points to, converting numbers as needed.
// Unknown names and unconvertible values are skipped.
func SetStructProperties(srcMap map[string]interface{}, dst interface{}) {
	dstValue := reflect.ValueOf(dst)
	if dstValue.Kind() != reflect.Ptr || dstValue.Elem().Kind() != reflect.Struct {
		return
	}
	s := dstValue.Elem()

	for name, value := range srcMap {
		f := s.FieldByName(name)
		if !f.IsValid() || !f.CanSet() {
			continue
		}

		converted, err := ConvertType(value, f.Kind())
		if err != nil {
			continue
		}

		f.Set(reflect.ValueOf(converted).Convert(f.Type()))
	}
}
