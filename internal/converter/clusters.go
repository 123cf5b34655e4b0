package converter

const (
	ClusterBasic       uint16 = 0x0000
	ClusterIdentify    uint16 = 0x0003
	ClusterOnOff       uint16 = 0x0006
	ClusterLevel       uint16 = 0x0008
	ClusterColor       uint16 = 0x0300
	ClusterTemperature uint16 = 0x0402
)

const (
	AttrBasicManufacturerName uint16 = 0x0004
	AttrBasicModelID          uint16 = 0x0005

	AttrIdentifyTime uint16 = 0x0000

	AttrOnOff        uint16 = 0x0000
	AttrStartUpOnOff uint16 = 0x4003

	AttrCurrentLevel uint16 = 0x0000

	AttrCurrentX uint16 = 0x0003
	AttrCurrentY uint16 = 0x0004

	AttrMeasuredValue uint16 = 0x0000
)

const (
	CommandOff                  uint8 = 0x00
	CommandOn                   uint8 = 0x01
	CommandToggle               uint8 = 0x02
	CommandMoveToLevelWithOnOff uint8 = 0x04
	CommandMoveToColor          uint8 = 0x07
	CommandTriggerEffect        uint8 = 0x40
)

// IdentifyDuration is the identify time in seconds written on "identify".
const IdentifyDuration = 3

var effectIdentifiers = map[string]uint8{
	"blink":          0x00,
	"breathe":        0x01,
	"okay":           0x02,
	"channel_change": 0x0b,
	"finish_effect":  0xfe,
	"stop_effect":    0xff,
}

var powerOnBehaviors = map[uint8]string{
	0x00: "off",
	0x01: "on",
	0x02: "toggle",
	0xff: "previous",
}

const invalidTemperature = -0x8000
