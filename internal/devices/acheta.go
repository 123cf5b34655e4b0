package devices

import "github.com/acheta/depth2mqtt/internal/definition"

// DepthSensor is the Acheta ultrasonic depth sensor (ESP32-H2 end device,
// endpoint 1). Depth is published on the analog output cluster.
func DepthSensor() definition.Definition {
	return definition.Definition{
		ZigbeeModel: []string{"Depth.Sensor"},
		Model:       "Depth.Sensor",
		Vendor:      "Acheta",
		Description: "Automatically generated definition",
		Capabilities: []definition.Capability{
			definition.Identify{},
			definition.Light{Color: true, Effect: false, PowerOnBehavior: false},
			definition.Temperature{},
			definition.Numeric{
				Name:      "depth",
				Cluster:   "genAnalogOutput",
				Attribute: "presentValue",
				Reporting: &definition.ReportingPolicy{
					Min:    definition.Interval10Seconds,
					Max:    definition.IntervalHour,
					Change: 1,
				},
				Description: "Measure distance from sensor",
				Unit:        "cm",
				ValueMin:    20,
				ValueMax:    600,
				Access:      definition.AccessStateGet,
			},
		},
		Meta: map[string]interface{}{},
	}
}
