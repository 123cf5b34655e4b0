package definition

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"
)

type Kind string

const (
	KindIdentify    Kind = "identify"
	KindLight       Kind = "light"
	KindTemperature Kind = "temperature"
	KindNumeric     Kind = "numeric"
)

// Capability is one feature a device exposes. The set of implementations is
// closed: Identify, Light, Temperature and Numeric.
type Capability interface {
	Kind() Kind
	Validate() error
	Exposes() []Expose
	capability()
}

// Identify exposes the "locate device" action of the genIdentify cluster.
type Identify struct{}

func (Identify) Kind() Kind { return KindIdentify }

func (Identify) Validate() error { return nil }

func (Identify) Exposes() []Expose {
	return []Expose{
		enumExpose("identify", AccessSet, []string{"identify"}, "Initiate device identification"),
	}
}

func (Identify) capability() {}

// Light exposes on/off and brightness, optionally xy color, effects and the
// power-on behavior attribute.
type Light struct {
	Color           bool
	Effect          bool
	PowerOnBehavior bool
}

var (
	LightEffects          = []string{"blink", "breathe", "okay", "channel_change", "finish_effect", "stop_effect"}
	PowerOnBehaviorValues = []string{"off", "on", "toggle", "previous"}
)

const (
	BrightnessMin = 0
	BrightnessMax = 254
)

// Reporting used for the light attributes.
var (
	DefaultOnOffReporting      = ReportingPolicy{Min: IntervalMin, Max: IntervalHour}
	DefaultBrightnessReporting = ReportingPolicy{Min: Interval5Seconds, Max: IntervalHour, Change: 1}
	DefaultColorReporting      = ReportingPolicy{Min: Interval5Seconds, Max: IntervalHour, Change: 1}
)

func (Light) Kind() Kind { return KindLight }

func (Light) Validate() error { return nil }

func (l Light) Exposes() []Expose {
	features := []Expose{
		{
			Type:        ExposeBinary,
			Name:        "state",
			Property:    "state",
			Access:      uint8(AccessAll),
			ValueOn:     "ON",
			ValueOff:    "OFF",
			ValueToggle: "TOGGLE",
			Description: "On/off state of this light",
		},
		numericExpose("brightness", AccessAll, "Brightness of this light").withRange(BrightnessMin, BrightnessMax),
	}

	if l.Color {
		features = append(features, Expose{
			Type:        ExposeComposite,
			Name:        "color_xy",
			Property:    "color",
			Access:      uint8(AccessAll),
			Description: "Color of this light in the CIE 1931 color space (x/y)",
			Features: []Expose{
				numericExpose("x", AccessAll, ""),
				numericExpose("y", AccessAll, ""),
			},
		})
	}

	ret := []Expose{{Type: ExposeLight, Features: features}}

	if l.Effect {
		ret = append(ret, enumExpose("effect", AccessSet, LightEffects, "Triggers an effect on the light"))
	}
	if l.PowerOnBehavior {
		ret = append(ret, enumExpose("power_on_behavior", AccessAll, PowerOnBehaviorValues, "Controls the behavior when the device is powered on after power loss"))
	}

	return ret
}

func (Light) capability() {}

// Temperature exposes msTemperatureMeasurement in degrees Celsius.
type Temperature struct{}

func (Temperature) Kind() Kind { return KindTemperature }

func (Temperature) Validate() error { return nil }

func (Temperature) Exposes() []Expose {
	return []Expose{
		numericExpose("temperature", AccessStateGet, "Measured temperature value").withUnit("°C"),
	}
}

// DefaultTemperatureReporting reports at least hourly and on a change of 1 °C.
var DefaultTemperatureReporting = ReportingPolicy{Min: Interval10Seconds, Max: IntervalHour, Change: 100}

func (Temperature) capability() {}

// Numeric maps a bounded numeric value onto one attribute of a cluster.
type Numeric struct {
	Name        string
	Cluster     string
	Attribute   string
	Reporting   *ReportingPolicy
	Description string
	Unit        string
	ValueMin    float64
	ValueMax    float64
	Access      Access
}

func (Numeric) Kind() Kind { return KindNumeric }

func (n Numeric) Validate() error {
	var err error

	if n.Name == "" {
		err = multierr.Append(err, errors.New("name is empty"))
	}
	if n.Cluster == "" {
		err = multierr.Append(err, errors.New("cluster is empty"))
	}
	if n.Attribute == "" {
		err = multierr.Append(err, errors.New("attribute is empty"))
	}
	if n.Unit == "" {
		err = multierr.Append(err, errors.New("unit is empty"))
	}
	if math.IsNaN(n.ValueMin) || math.IsNaN(n.ValueMax) {
		err = multierr.Append(err, errors.New("value range is not a number"))
	} else if n.ValueMin > n.ValueMax {
		err = multierr.Append(err, fmt.Errorf("valueMin %v is greater than valueMax %v", n.ValueMin, n.ValueMax))
	}
	if !n.Access.Valid() {
		err = multierr.Append(err, fmt.Errorf("unknown access %v", n.Access))
	}
	if n.Reporting != nil {
		if rerr := n.Reporting.Validate(); rerr != nil {
			err = multierr.Append(err, rerr)
		}
	}

	if err != nil {
		return fmt.Errorf("numeric %q: %w", n.Name, err)
	}

	return nil
}

// InRange reports whether v lies within [ValueMin, ValueMax].
func (n Numeric) InRange(v float64) bool {
	return v >= n.ValueMin && v <= n.ValueMax
}

func (n Numeric) Exposes() []Expose {
	return []Expose{
		numericExpose(n.Name, n.Access, n.Description).withUnit(n.Unit).withRange(n.ValueMin, n.ValueMax),
	}
}

func (Numeric) capability() {}
