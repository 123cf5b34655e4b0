package definition

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Interval is a reporting interval in seconds.
type Interval uint16

const (
	IntervalMin       Interval = 0
	Interval5Seconds  Interval = 5
	Interval10Seconds Interval = 10
	IntervalMinute    Interval = 60
	Interval5Minutes  Interval = 300
	Interval10Minutes Interval = 600
	Interval15Minutes Interval = 900
	Interval30Minutes Interval = 1800
	IntervalHour      Interval = 3600
	IntervalMax       Interval = 62000
)

var intervalNames = map[Interval]string{
	IntervalMin:       "MIN",
	Interval5Seconds:  "5_SECONDS",
	Interval10Seconds: "10_SECONDS",
	IntervalMinute:    "1_MINUTE",
	Interval5Minutes:  "5_MINUTES",
	Interval10Minutes: "10_MINUTES",
	Interval15Minutes: "15_MINUTES",
	Interval30Minutes: "30_MINUTES",
	IntervalHour:      "1_HOUR",
	IntervalMax:       "MAX",
}

// ParseInterval accepts a named interval such as "10_SECONDS" or a number of seconds.
func ParseInterval(s string) (Interval, error) {
	for i, n := range intervalNames {
		if n == s {
			return i, nil
		}
	}

	seconds, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("unknown interval %q", s)
	}

	return Interval(seconds), nil
}

func (i Interval) String() string {
	if n, ok := intervalNames[i]; ok {
		return n
	}

	return strconv.Itoa(int(i))
}

// Seconds is the value sent in a configure reporting record.
func (i Interval) Seconds() uint16 {
	return uint16(i)
}

func (i Interval) MarshalJSON() ([]byte, error) {
	if n, ok := intervalNames[i]; ok {
		return json.Marshal(n)
	}

	return json.Marshal(uint16(i))
}

func (i *Interval) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, err := ParseInterval(name)
		if err != nil {
			return err
		}
		*i = parsed
		return nil
	}

	var seconds uint16
	if err := json.Unmarshal(data, &seconds); err != nil {
		return fmt.Errorf("interval must be a name or a number of seconds: %w", err)
	}
	*i = Interval(seconds)

	return nil
}

func (i Interval) MarshalYAML() (interface{}, error) {
	if n, ok := intervalNames[i]; ok {
		return n, nil
	}

	return uint16(i), nil
}

func (i *Interval) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var seconds uint16
	if err := unmarshal(&seconds); err == nil {
		*i = Interval(seconds)
		return nil
	}

	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}

	parsed, err := ParseInterval(name)
	if err != nil {
		return err
	}
	*i = parsed

	return nil
}

// ReportingPolicy controls when a device reports an attribute on its own:
// at most every Max, at least Min apart, and early once the value moved by Change.
type ReportingPolicy struct {
	Min    Interval `json:"min" yaml:"min"`
	Max    Interval `json:"max" yaml:"max"`
	Change float64  `json:"change" yaml:"change"`
}

func (rp ReportingPolicy) Validate() error {
	if rp.Min > rp.Max {
		return fmt.Errorf("reporting min %v is greater than max %v", rp.Min, rp.Max)
	}
	if rp.Change < 0 {
		return errors.New("reporting change must not be negative")
	}

	return nil
}
