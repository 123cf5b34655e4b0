package types

// DeviceCommandMessage is a cluster specific (local) ZCL command. CommandData
// holds the command struct fields by name.
type DeviceCommandMessage struct {
	IEEEAddress       uint64
	ClusterID         uint16
	Endpoint          uint8
	CommandIdentifier uint8
	CommandData       map[string]interface{}
}

type DeviceGetMessage struct {
	IEEEAddress uint64
	ClusterID   uint16
	Endpoint    uint8
	Attributes  []uint16
}

type AttributeValue struct {
	ID       uint16
	DataType byte
	Value    interface{}
}

type DeviceWriteMessage struct {
	IEEEAddress uint64
	ClusterID   uint16
	Endpoint    uint8
	Attributes  []AttributeValue
}

// DeviceSetMessage carries a state change by property name, e.g. {"state": "ON"}.
type DeviceSetMessage struct {
	IEEEAddress uint64
	Payload     map[string]interface{}
}

// DeviceStateGetMessage asks for a refresh of the named properties, all of them when empty.
type DeviceStateGetMessage struct {
	IEEEAddress uint64
	Properties  []string
}

type DeviceExploreMessage struct {
	IEEEAddress uint64
}

type DeviceConfigSetMessage struct {
	PermitJoin bool
}

type ReportingConfiguration struct {
	ClusterID   uint16
	AttributeID uint16
	DataType    byte
	Min         uint16
	Max         uint16
	Change      float64
}
