package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/acheta/depth2mqtt/internal/configuration"
	"github.com/acheta/depth2mqtt/internal/db"
	"github.com/acheta/depth2mqtt/internal/logger"
	"github.com/acheta/depth2mqtt/internal/mqtt"
	"github.com/acheta/depth2mqtt/internal/registry"
	"github.com/acheta/depth2mqtt/internal/types"
)

const (
	MQTT_DEVICE_SET      = "set"
	MQTT_DEVICE_GET      = "get"
	MQTT_DEVICE_EXPLORE  = "explore"
	MQTT_GET_DEVICES     = "get_devices"
	MQTT_GET_DEFINITIONS = "get_definitions"
	MQTT_CONFIG          = "config"
	MQTT_DEVICES         = "devices"
	MQTT_DEFINITIONS     = "definitions"
	MQTT_GATEWAY         = "gateway"
)

type mqttRouter struct {
	mqttClient           mqtt.MqttClient
	configurationService configuration.ConfigurationService
	database             db.DeviceDB
	registry             *registry.Registry
	onCommandMessage     func(devCmd types.DeviceCommandMessage)
	onGetMessage         func(devCmd types.DeviceGetMessage)
	onSetMessage         func(devCmd types.DeviceSetMessage)
	onStateGetMessage    func(devCmd types.DeviceStateGetMessage)
	onExploreMessage     func(devCmd types.DeviceExploreMessage)
	onSetDeviceConfig    func(devCmd types.DeviceConfigSetMessage)
	logger               logger.Logger
}

func NewMQTTRouter(
	configurationService configuration.ConfigurationService,
	mqttClient mqtt.MqttClient,
	database db.DeviceDB,
	reg *registry.Registry) MQTTRouter {
	ret := mqttRouter{
		mqttClient:           mqttClient,
		configurationService: configurationService,
		database:             database,
		registry:             reg,
		logger:               logger.GetLogger("[MQTT Router]"),
	}

	mqttClient.Subscribe(ret.mqttMessage)

	return &ret
}

// PublishDeviceMessage publishes on <root>/<0xieee>[/subtopic].
func (h *mqttRouter) PublishDeviceMessage(ieeeAddress uint64, msg interface{}, subtopic string) {
	topic := mqtt.FormatIEEEAddress(ieeeAddress)
	if subtopic != "" {
		topic = fmt.Sprintf("%v/%v", topic, subtopic)
	}

	h.publish(topic, msg)
}

func (h *mqttRouter) PublishGatewayMessage(msg interface{}, subtopic string) {
	h.publish(fmt.Sprintf("%v/%v", MQTT_GATEWAY, subtopic), msg)
}

func (h *mqttRouter) PublishDefinitions() {
	defs := h.registry.All()

	ret := make([]mqtt.DefinitionMessage, len(defs))
	for i, d := range defs {
		ret[i] = mqtt.NewDefinitionMessage(d)
	}

	h.PublishGatewayMessage(ret, MQTT_DEFINITIONS)
}

func (h *mqttRouter) publish(topic string, msg interface{}) {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error Marshal %T: %v", msg, err)
		return
	}

	h.mqttClient.Publish(topic, jsonData)
}

func (h *mqttRouter) SubscribeOnCommandMessage(callback func(devCmd types.DeviceCommandMessage)) {
	h.onCommandMessage = callback
}

func (h *mqttRouter) SubscribeOnGetMessage(callback func(devCmd types.DeviceGetMessage)) {
	h.onGetMessage = callback
}

func (h *mqttRouter) SubscribeOnSetMessage(callback func(devCmd types.DeviceSetMessage)) {
	h.onSetMessage = callback
}

func (h *mqttRouter) SubscribeOnStateGetMessage(callback func(devCmd types.DeviceStateGetMessage)) {
	h.onStateGetMessage = callback
}

func (h *mqttRouter) SubscribeOnExploreMessage(callback func(devCmd types.DeviceExploreMessage)) {
	h.onExploreMessage = callback
}

func (h *mqttRouter) SubscribeOnSetDeviceConfigMessage(callback func(devCmd types.DeviceConfigSetMessage)) {
	h.onSetDeviceConfig = callback
}

// mqttMessage receives everything under <root>/#, our own publications
// included; only command topics are acted on.
func (h *mqttRouter) mqttMessage(topic string, message []byte) {
	root := h.configurationService.GetConfiguration().MqttConfiguration.RootTopic
	if !strings.HasPrefix(topic, root+"/") {
		return
	}

	topicParts := strings.Split(strings.TrimPrefix(topic, root+"/"), "/")
	if len(topicParts) != 2 {
		return
	}

	if topicParts[0] == MQTT_GATEWAY {
		h.handleGatewayMessage(topicParts[1], message)
		return
	}

	h.handleDeviceMessage(topicParts[0], topicParts[1], message)
}

func (h *mqttRouter) handleGatewayMessage(command string, message []byte) {
	switch command {
	case MQTT_GET_DEVICES:
		h.publishDevicesList()
	case MQTT_GET_DEFINITIONS:
		h.PublishDefinitions()
	case MQTT_CONFIG:
		h.handleGatewayConfig(message)
	}
}

func (h *mqttRouter) handleGatewayConfig(message []byte) {
	var gwCfg mqtt.SetGatewayConfig
	if err := json.Unmarshal(message, &gwCfg); err != nil {
		h.logger.Error("Error unmarshal gateway config: %v", err)
		return
	}

	h.logger.Info("Gateway config received. PermitJoin:%v", gwCfg.PermitJoin)

	cfg := h.configurationService.GetConfiguration()
	if cfg.PermitJoin != gwCfg.PermitJoin {
		cfg.PermitJoin = gwCfg.PermitJoin
		if err := h.configurationService.Update(cfg); err != nil {
			h.logger.Error("Error saving configuration: %v", err)
		}
	}

	if h.onSetDeviceConfig != nil {
		h.onSetDeviceConfig(types.DeviceConfigSetMessage{
			PermitJoin: gwCfg.PermitJoin,
		})
	}
}

func (h *mqttRouter) publishDevicesList() {
	devices, err := h.database.GetDevices(context.Background())
	if err != nil {
		h.logger.Error("Error reading devices: %v", err)
		return
	}

	ret := make([]mqtt.DeviceInfo, len(devices))
	for i, d := range devices {
		ret[i] = mqtt.NewDeviceInfo(d)
	}

	h.PublishGatewayMessage(ret, MQTT_DEVICES)
}

func parseIEEEAddress(s string) (uint64, error) {
	if !strings.HasPrefix(s, "0x") {
		return 0, fmt.Errorf("device address %q has no 0x prefix", s)
	}

	return strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
}

func (h *mqttRouter) handleDeviceMessage(deviceAddrStr string, command string, message []byte) {
	switch command {
	case MQTT_DEVICE_GET, MQTT_DEVICE_SET, MQTT_DEVICE_EXPLORE:
	default:
		return
	}

	deviceAddr, err := parseIEEEAddress(deviceAddrStr)
	if err != nil {
		h.logger.Warn("Error parsing device address: %v", err)
		return
	}

	switch command {
	case MQTT_DEVICE_GET:
		h.handleDeviceGetCommand(deviceAddr, message)
	case MQTT_DEVICE_SET:
		h.handleDeviceSetCommand(deviceAddr, message)
	case MQTT_DEVICE_EXPLORE:
		h.logger.Info("EXPLORE message received. Device:%v", deviceAddrStr)
		if h.onExploreMessage != nil {
			h.onExploreMessage(types.DeviceExploreMessage{IEEEAddress: deviceAddr})
		}
	}
}

// isRawMessage tells the cluster level form ({"ClusterID": 6, ...}) apart
// from the property form ({"state": "ON"}).
func isRawMessage(payload map[string]interface{}) bool {
	_, ok := payload["ClusterID"]
	return ok
}

func (h *mqttRouter) handleDeviceGetCommand(deviceAddr uint64, message []byte) {
	payload := make(map[string]interface{})
	if len(strings.TrimSpace(string(message))) > 0 {
		if err := json.Unmarshal(message, &payload); err != nil {
			h.logger.Error("Error unmarshal GET message: %v", err)
			return
		}
	}

	if !isRawMessage(payload) {
		properties := make([]string, 0, len(payload))
		for p := range payload {
			properties = append(properties, p)
		}
		sort.Strings(properties)

		h.logger.Debug("GET message received. Device:%v, Properties:%v", deviceAddr, properties)

		if h.onStateGetMessage != nil {
			h.onStateGetMessage(types.DeviceStateGetMessage{
				IEEEAddress: deviceAddr,
				Properties:  properties,
			})
		}
		return
	}

	var devMsg mqtt.DeviceGetMessage
	if err := json.Unmarshal(message, &devMsg); err != nil {
		h.logger.Error("Error unmarshal GET message: %v", err)
		return
	}

	h.logger.Debug("GET message received. Device:%v, ClusterID:%v", deviceAddr, devMsg.ClusterID)

	if h.onGetMessage != nil {
		h.onGetMessage(types.DeviceGetMessage{
			IEEEAddress: deviceAddr,
			ClusterID:   devMsg.ClusterID,
			Endpoint:    devMsg.Endpoint,
			Attributes:  devMsg.Attributes,
		})
	}
}

func (h *mqttRouter) handleDeviceSetCommand(deviceAddr uint64, message []byte) {
	payload := make(map[string]interface{})
	if err := json.Unmarshal(message, &payload); err != nil {
		h.logger.Error("Error unmarshal SET message: %v", err)
		return
	}

	if !isRawMessage(payload) {
		h.logger.Debug("SET message received. Device:%v, Payload:%v", deviceAddr, payload)

		if h.onSetMessage != nil {
			h.onSetMessage(types.DeviceSetMessage{
				IEEEAddress: deviceAddr,
				Payload:     payload,
			})
		}
		return
	}

	var devMsg mqtt.DeviceSetMessage
	if err := json.Unmarshal(message, &devMsg); err != nil {
		h.logger.Error("Error unmarshal SET message: %v", err)
		return
	}

	h.logger.Debug("SET message received. Device:%v, ClusterID:%v, CommandID:%v", deviceAddr, devMsg.ClusterID, devMsg.CommandIdentifier)

	if h.onCommandMessage != nil {
		h.onCommandMessage(types.DeviceCommandMessage{
			IEEEAddress:       deviceAddr,
			ClusterID:         devMsg.ClusterID,
			Endpoint:          devMsg.Endpoint,
			CommandIdentifier: devMsg.CommandIdentifier,
			CommandData:       devMsg.CommandData,
		})
	}
}
