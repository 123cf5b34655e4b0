package definition

import (
	"fmt"
	"strconv"
)

// Access is the zigbee2mqtt access bitmask of an exposed property.
type Access uint8

const (
	AccessState Access = 1 << iota
	AccessSet
	AccessGet

	AccessStateSet = AccessState | AccessSet
	AccessStateGet = AccessState | AccessGet
	AccessAll      = AccessState | AccessSet | AccessGet
)

var accessNames = map[Access]string{
	AccessState:    "STATE",
	AccessSet:      "SET",
	AccessGet:      "GET",
	AccessStateSet: "STATE_SET",
	AccessStateGet: "STATE_GET",
	AccessAll:      "ALL",
}

func ParseAccess(name string) (Access, error) {
	for a, n := range accessNames {
		if n == name {
			return a, nil
		}
	}

	return 0, fmt.Errorf("unknown access %q", name)
}

func (a Access) Valid() bool {
	_, ok := accessNames[a]
	return ok
}

func (a Access) CanSet() bool { return a&AccessSet != 0 }

func (a Access) CanGet() bool { return a&AccessGet != 0 }

func (a Access) String() string {
	if n, ok := accessNames[a]; ok {
		return n
	}

	return strconv.Itoa(int(a))
}

func (a Access) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("unknown access %d", uint8(a))
	}

	return []byte(a.String()), nil
}

func (a *Access) UnmarshalText(text []byte) error {
	parsed, err := ParseAccess(string(text))
	if err != nil {
		return err
	}

	*a = parsed

	return nil
}

func (a Access) MarshalYAML() (interface{}, error) {
	text, err := a.MarshalText()
	if err != nil {
		return nil, err
	}

	return string(text), nil
}

func (a *Access) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}

	return a.UnmarshalText([]byte(name))
}
