package configuration

type ZNetworkConfiguration struct {
	PANID         uint16   `yaml:"panid"`
	ExtendedPANID uint64   `yaml:"extendedpanid"`
	NetworkKey    [16]byte `yaml:"networkkey"`
	Channel       uint8    `yaml:"channel"`
}

type MqttConfiguration struct {
	Address   string `yaml:"address"`
	Port      uint16 `yaml:"port"`
	RootTopic string `yaml:"roottopic"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

type SerialConfiguration struct {
	PortName string `yaml:"portname"`
	BaudRate uint32 `yaml:"baudrate"`
}

type DefinitionsConfiguration struct {
	// Directory with external definition files, empty disables loading.
	Directory string `yaml:"directory"`
	// Strict turns an invalid definition into a startup error instead of a warning.
	Strict bool `yaml:"strict"`
}

type ApiConfiguration struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type Configuration struct {
	ZNetworkConfiguration ZNetworkConfiguration    `yaml:"znetworkconfiguration"`
	MqttConfiguration     MqttConfiguration        `yaml:"mqttconfiguration"`
	SerialConfiguration   SerialConfiguration      `yaml:"serialconfiguration"`
	Definitions           DefinitionsConfiguration `yaml:"definitions"`
	Api                   ApiConfiguration         `yaml:"api"`
	DataDirectory         string                   `yaml:"datadirectory"`
	PermitJoin            bool                     `yaml:"permitjoin"`
	LogLevel              string                   `yaml:"loglevel"` // debug, info, warn, error
}
