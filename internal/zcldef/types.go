package zcldef

// ZCL data type identifiers used by the cluster dictionary.
const (
	TypeBoolean         byte = 0x10
	TypeBitmap8         byte = 0x18
	TypeBitmap16        byte = 0x19
	TypeUnsignedInt8    byte = 0x20
	TypeUnsignedInt16   byte = 0x21
	TypeUnsignedInt32   byte = 0x23
	TypeSignedInt8      byte = 0x28
	TypeSignedInt16     byte = 0x29
	TypeSignedInt32     byte = 0x2b
	TypeEnum8           byte = 0x30
	TypeEnum16          byte = 0x31
	TypeFloatSingle     byte = 0x39
	TypeCharacterString byte = 0x42
)

type ClusterDefinition struct {
	ID               uint16
	Name             string
	Attributes       map[uint16]AttributeDefinition
	Commands         map[uint16]CommandDefinition
	CommandsResponse map[uint16]CommandsResponseDefinition
}

type AttributeDefinition struct {
	ID   uint16
	Name string
	Type byte
}

type CommandDefinition struct {
	ID         uint16
	Name       string
	Parameters [][]string
}

type CommandsResponseDefinition struct {
	ID         uint16
	Name       string
	Parameters [][]string
}

// AttributeByName returns the attribute definition with the given name.
func (cd ClusterDefinition) AttributeByName(name string) (AttributeDefinition, bool) {
	for _, a := range cd.Attributes {
		if a.Name == name {
			return a, true
		}
	}

	return AttributeDefinition{}, false
}

// IsAnalog reports whether values of the data type change continuously, so
// a reportable change applies to them.
func IsAnalog(dataType byte) bool {
	switch {
	case dataType >= 0x20 && dataType <= 0x2f:
		return true
	case dataType >= 0x38 && dataType <= 0x3a:
		return true
	case dataType >= 0xe0 && dataType <= 0xe2:
		return true
	}

	return false
}
