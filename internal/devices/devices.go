package devices

import "github.com/acheta/depth2mqtt/internal/definition"

// Builtin returns the definitions compiled into the gateway.
func Builtin() []definition.Definition {
	return []definition.Definition{
		DepthSensor(),
	}
}
