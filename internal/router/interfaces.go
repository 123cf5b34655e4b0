package router

import (
	"context"

	"github.com/shimmeringbee/zigbee"

	"github.com/acheta/depth2mqtt/internal/mqtt"
	"github.com/acheta/depth2mqtt/internal/types"
)

type MQTTRouter interface {
	PublishDeviceMessage(ieeeAddress uint64, msg interface{}, subtopic string)
	PublishGatewayMessage(msg interface{}, subtopic string)
	PublishDefinitions()

	SubscribeOnCommandMessage(callback func(devCmd types.DeviceCommandMessage))
	SubscribeOnGetMessage(callback func(devCmd types.DeviceGetMessage))
	SubscribeOnSetMessage(callback func(devCmd types.DeviceSetMessage))
	SubscribeOnStateGetMessage(callback func(devCmd types.DeviceStateGetMessage))
	SubscribeOnExploreMessage(callback func(devCmd types.DeviceExploreMessage))
	SubscribeOnSetDeviceConfigMessage(callback func(devCmd types.DeviceConfigSetMessage))
}

type ZigbeeRouter interface {
	SubscribeOnDeviceMessage(callback func(devMsg mqtt.DeviceMessage))
	SubscribeOnDeviceState(callback func(devMsg mqtt.DeviceStateMessage))
	SubscribeOnDeviceInterview(callback func(devMsg mqtt.DeviceInterviewMessage))
	SubscribeOnDeviceDescription(callback func(devMsg mqtt.DeviceDescriptionMessage))
	SubscribeOnDeviceJoin(cb func(e zigbee.NodeJoinEvent))
	SubscribeOnDeviceLeave(cb func(e zigbee.NodeLeaveEvent))
	SubscribeOnDeviceUpdate(cb func(e zigbee.NodeUpdateEvent))
	ProccessCommandMessageToDevice(ctx context.Context, devCmd types.DeviceCommandMessage)
	ProccessGetMessageToDevice(ctx context.Context, devCmd types.DeviceGetMessage)
	ProccessWriteMessageToDevice(ctx context.Context, devCmd types.DeviceWriteMessage)
	ProccessSetMessageToDevice(ctx context.Context, devCmd types.DeviceSetMessage)
	ProccessStateGetMessageToDevice(ctx context.Context, devCmd types.DeviceStateGetMessage)
	ProccessSetDeviceConfigMessage(ctx context.Context, devCmd types.DeviceConfigSetMessage)
	ProccessGetDeviceDescriptionMessage(ctx context.Context, devCmd types.DeviceExploreMessage)
	StartAsync(ctx context.Context) error
	Stop()
}

// zigbeeProvider is the part of the Z-Stack coordinator the router uses.
type zigbeeProvider interface {
	ReadEvent(ctx context.Context) (interface{}, error)
	SendApplicationMessageToNode(ctx context.Context, destinationAddress zigbee.IEEEAddress, message zigbee.ApplicationMessage, requireAck bool) error
	BindNodeToController(ctx context.Context, nodeAddress zigbee.IEEEAddress, sourceEndpoint zigbee.Endpoint, destinationEndpoint zigbee.Endpoint, cluster zigbee.ClusterID) error
	QueryNodeDescription(ctx context.Context, nodeAddress zigbee.IEEEAddress) (zigbee.NodeDescription, error)
	QueryNodeEndpoints(ctx context.Context, nodeAddress zigbee.IEEEAddress) ([]zigbee.Endpoint, error)
	QueryNodeEndpointDescription(ctx context.Context, nodeAddress zigbee.IEEEAddress, endpoint zigbee.Endpoint) (zigbee.EndpointDescription, error)
	PermitJoin(ctx context.Context, allRouters bool) error
	DenyJoin(ctx context.Context) error
}
