package mqtt

import (
	"fmt"
	"sync"
	"time"

	mqttlib "github.com/eclipse/paho.mqtt.golang"

	"github.com/acheta/depth2mqtt/internal/configuration"
	"github.com/acheta/depth2mqtt/internal/logger"
)

const (
	gatewayStatusTopic = "gateway/status"
	statusOnline       = "Online"
	statusOffline      = "Offline"
)

func NewClient(config *configuration.Configuration) (MqttClient, func(), error) {
	retClient := defaultMqttClient{
		rootTopic: config.MqttConfiguration.RootTopic,
		logger:    logger.GetLogger("[MQTT Client]"),
	}

	mqttlib.ERROR = retClient.logger.StdLogger()
	mqttlib.CRITICAL = retClient.logger.StdLogger()

	statusTopic := fmt.Sprintf("%v/%v", config.MqttConfiguration.RootTopic, gatewayStatusTopic)

	opts := mqttlib.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", config.MqttConfiguration.Address, config.MqttConfiguration.Port))
	opts.SetClientID(config.MqttConfiguration.RootTopic)
	opts.SetUsername(config.MqttConfiguration.Username)
	opts.SetPassword(config.MqttConfiguration.Password)
	opts.SetWill(statusTopic, statusOffline, 0, true)
	opts.AutoReconnect = true
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetOrderMatters(false)
	opts.OnConnect = func(client mqttlib.Client) {
		retClient.logger.Info("Connected")

		// subscriptions do not survive a reconnect with a clean session
		if token := client.Subscribe(fmt.Sprintf("%s/#", retClient.rootTopic), 0, retClient.onMessageReceived); token.Wait() && token.Error() != nil {
			retClient.logger.Error("Subscribe error: %v", token.Error())
		}
		client.Publish(statusTopic, 0, true, statusOnline)
	}
	opts.OnConnectionLost = func(client mqttlib.Client, err error) {
		retClient.logger.Warn("Connect lost: %v", err)
	}

	innerClient := mqttlib.NewClient(opts)

	if token := innerClient.Connect(); token.Wait() && token.Error() != nil {
		return nil, nil, fmt.Errorf("connect to MQTT broker: %w", token.Error())
	}

	retClient.logger.Info("Connected to MQTT on '%v:%v'", config.MqttConfiguration.Address, config.MqttConfiguration.Port)

	retClient.innerClient = innerClient

	return &retClient, func() { retClient.Dispose() }, nil
}

type MqttClient interface {
	Dispose()
	Publish(subTopic string, data []byte)
	Subscribe(callback func(topic string, message []byte))
	UnSubscribe()
}

type defaultMqttClient struct {
	innerClient     mqttlib.Client
	rootTopic       string
	mu              sync.RWMutex
	messageCallback func(topic string, message []byte)
	logger          logger.Logger
}

func (cl *defaultMqttClient) Dispose() {
	cl.logger.Info("Disposing MQTT client")
	token := cl.innerClient.Publish(fmt.Sprintf("%v/%v", cl.rootTopic, gatewayStatusTopic), 0, true, statusOffline)
	token.WaitTimeout(time.Second)
	cl.innerClient.Disconnect(250)
}

func (cl *defaultMqttClient) Publish(subTopic string, data []byte) {
	cl.innerClient.Publish(fmt.Sprintf("%v/%v", cl.rootTopic, subTopic), 0, false, data)
}

func (cl *defaultMqttClient) Subscribe(callback func(topic string, message []byte)) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.messageCallback = callback
}

func (cl *defaultMqttClient) UnSubscribe() {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.messageCallback = nil
}

func (cl *defaultMqttClient) onMessageReceived(client mqttlib.Client, msg mqttlib.Message) {
	cl.mu.RLock()
	callback := cl.messageCallback
	cl.mu.RUnlock()

	if callback != nil {
		go callback(msg.Topic(), msg.Payload())
	}
}
