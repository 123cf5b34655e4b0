package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shimmeringbee/zcl"
	"github.com/shimmeringbee/zcl/commands/global"
	"github.com/shimmeringbee/zcl/commands/local/color_control"
	"github.com/shimmeringbee/zcl/commands/local/ias_zone"
	"github.com/shimmeringbee/zcl/commands/local/level"
	"github.com/shimmeringbee/zcl/commands/local/onoff"
	"github.com/shimmeringbee/zigbee"
	"github.com/shimmeringbee/zstack"
	"go.bug.st/serial.v1"

	"github.com/acheta/depth2mqtt/internal/configuration"
	"github.com/acheta/depth2mqtt/internal/converter"
	"github.com/acheta/depth2mqtt/internal/db"
	"github.com/acheta/depth2mqtt/internal/logger"
	"github.com/acheta/depth2mqtt/internal/mqtt"
	"github.com/acheta/depth2mqtt/internal/registry"
	"github.com/acheta/depth2mqtt/internal/types"
	"github.com/acheta/depth2mqtt/internal/utils/reflector"
	"github.com/acheta/depth2mqtt/internal/zcldef"
)

const (
	adapterEndpoint = zigbee.Endpoint(0x01)
	defaultEndpoint = uint8(0x01)
)

type zigbeeRouter struct {
	provider                   zigbeeProvider
	stop                       func()
	openPort                   func(name string, mode *serial.Mode) (serial.Port, error)
	configuration              *configuration.Configuration
	zclCommandRegistry         *zcl.CommandRegistry
	zclDefService              zcldef.ZCLDefService
	database                   db.DeviceDB
	registry                   *registry.Registry
	converter                  *converter.Converter
	transactionSequence        uint32
	interviewMu                sync.Mutex
	interviews                 map[uint64]time.Time
	onDeviceMessage            func(devMsg mqtt.DeviceMessage)
	onDeviceState              func(devMsg mqtt.DeviceStateMessage)
	onDeviceInterview          func(devMsg mqtt.DeviceInterviewMessage)
	onDeviceDescriptionMessage func(devMsg mqtt.DeviceDescriptionMessage)
	onDeviceJoin               func(e zigbee.NodeJoinEvent)
	onDeviceLeave              func(e zigbee.NodeLeaveEvent)
	onDeviceUpdate             func(e zigbee.NodeUpdateEvent)
	logger                     logger.Logger
}

func NewZigbeeRouter(
	zclDefService zcldef.ZCLDefService,
	database db.DeviceDB,
	reg *registry.Registry,
	conv *converter.Converter,
	cfg *configuration.Configuration) ZigbeeRouter {

	return newZigbeeRouter(zclDefService, database, reg, conv, cfg)
}

func newZigbeeRouter(
	zclDefService zcldef.ZCLDefService,
	database db.DeviceDB,
	reg *registry.Registry,
	conv *converter.Converter,
	cfg *configuration.Configuration) *zigbeeRouter {

	zclCommandRegistry := zcl.NewCommandRegistry()
	global.Register(zclCommandRegistry)
	onoff.Register(zclCommandRegistry)
	level.Register(zclCommandRegistry)
	color_control.Register(zclCommandRegistry)
	ias_zone.Register(zclCommandRegistry)
	registerIdentify(zclCommandRegistry)

	return &zigbeeRouter{
		openPort:           serial.Open,
		configuration:      cfg,
		zclCommandRegistry: zclCommandRegistry,
		zclDefService:      zclDefService,
		database:           database,
		registry:           reg,
		converter:          conv,
		interviews:         make(map[uint64]time.Time),
		logger:             logger.GetLogger("[Zigbee Router]"),
	}
}

func (mh *zigbeeRouter) SubscribeOnDeviceMessage(callback func(devMsg mqtt.DeviceMessage)) {
	mh.onDeviceMessage = callback
}

func (mh *zigbeeRouter) SubscribeOnDeviceState(callback func(devMsg mqtt.DeviceStateMessage)) {
	mh.onDeviceState = callback
}

func (mh *zigbeeRouter) SubscribeOnDeviceInterview(callback func(devMsg mqtt.DeviceInterviewMessage)) {
	mh.onDeviceInterview = callback
}

func (mh *zigbeeRouter) SubscribeOnDeviceDescription(callback func(devMsg mqtt.DeviceDescriptionMessage)) {
	mh.onDeviceDescriptionMessage = callback
}

func (mh *zigbeeRouter) SubscribeOnDeviceJoin(cb func(e zigbee.NodeJoinEvent)) {
	mh.onDeviceJoin = cb
}

func (mh *zigbeeRouter) SubscribeOnDeviceLeave(cb func(e zigbee.NodeLeaveEvent)) {
	mh.onDeviceLeave = cb
}

func (mh *zigbeeRouter) SubscribeOnDeviceUpdate(cb func(e zigbee.NodeUpdateEvent)) {
	mh.onDeviceUpdate = cb
}

func (mh *zigbeeRouter) ProccessSetDeviceConfigMessage(ctx context.Context, devCmd types.DeviceConfigSetMessage) {
	if devCmd.PermitJoin {
		if err := mh.provider.PermitJoin(ctx, true); err != nil {
			mh.logger.Error("Error PermitJoin: %v", err)
			return
		}
	} else {
		if err := mh.provider.DenyJoin(ctx); err != nil {
			mh.logger.Error("Error DenyJoin: %v", err)
			return
		}
	}

	mh.logger.Info("Permit join set to %v", devCmd.PermitJoin)
}

func (mh *zigbeeRouter) ProccessGetDeviceDescriptionMessage(ctx context.Context, devCmd types.DeviceExploreMessage) {
	mh.logger.Info("Quering description of node 0x%x", devCmd.IEEEAddress)

	ret := mqtt.DeviceDescriptionMessage{
		IEEEAddress: devCmd.IEEEAddress,
		Endpoints:   make([]mqtt.EndpointDescription, 0),
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	descriptor, err := mh.provider.QueryNodeDescription(ctx, zigbee.IEEEAddress(devCmd.IEEEAddress))
	if err != nil {
		mh.logger.Error("Failed to get node descriptor: %v", err)
		return
	}

	ret.LogicalType = uint8(descriptor.LogicalType)
	ret.ManufacturerCode = uint16(descriptor.ManufacturerCode)

	endpoints, err := mh.provider.QueryNodeEndpoints(ctx, zigbee.IEEEAddress(devCmd.IEEEAddress))
	if err != nil {
		mh.logger.Error("Failed to get node endpoints: %v", err)
		return
	}

	for _, endpoint := range endpoints {
		endpointDes, err := mh.provider.QueryNodeEndpointDescription(ctx, zigbee.IEEEAddress(devCmd.IEEEAddress), endpoint)
		if err != nil {
			mh.logger.Warn("Failed to get node endpoint description: %v / %d", err, endpoint)
			continue
		}

		newEl := mqtt.EndpointDescription{
			Endpoint:       uint8(endpointDes.Endpoint),
			ProfileID:      uint16(endpointDes.ProfileID),
			DeviceID:       endpointDes.DeviceID,
			DeviceVersion:  endpointDes.DeviceVersion,
			InClusterList:  make([]uint16, len(endpointDes.InClusterList)),
			OutClusterList: make([]uint16, len(endpointDes.OutClusterList)),
		}

		for i, v := range endpointDes.InClusterList {
			newEl.InClusterList[i] = uint16(v)
		}

		for i, v := range endpointDes.OutClusterList {
			newEl.OutClusterList[i] = uint16(v)
		}

		ret.Endpoints = append(ret.Endpoints, newEl)
	}

	if mh.onDeviceDescriptionMessage != nil {
		mh.onDeviceDescriptionMessage(ret)
	}
}

func (mh *zigbeeRouter) nextTransactionSequence() uint8 {
	return uint8(atomic.AddUint32(&mh.transactionSequence, 1))
}

func (mh *zigbeeRouter) send(ctx context.Context, ieeeAddress uint64, message zcl.Message) error {
	message.TransactionSequence = mh.nextTransactionSequence()

	appMsg, err := mh.zclCommandRegistry.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal zcl message: %w", err)
	}

	if err := mh.provider.SendApplicationMessageToNode(ctx, zigbee.IEEEAddress(ieeeAddress), appMsg, false); err != nil {
		return fmt.Errorf("send to 0x%x: %w", ieeeAddress, err)
	}

	mh.logger.Debug("Message (ClusterID: %v, Command: %v) is sent to 0x%x device", message.ClusterID, message.CommandIdentifier, ieeeAddress)

	return nil
}

func globalMessage(clusterID uint16, endpoint uint8, commandID zcl.CommandIdentifier, command interface{}) zcl.Message {
	return zcl.Message{
		FrameType:           zcl.FrameGlobal,
		Direction:           zcl.ClientToServer,
		Manufacturer:        zigbee.NoManufacturer,
		ClusterID:           zigbee.ClusterID(clusterID),
		SourceEndpoint:      adapterEndpoint,
		DestinationEndpoint: zigbee.Endpoint(endpoint),
		CommandIdentifier:   commandID,
		Command:             command,
	}
}

func (mh *zigbeeRouter) ProccessGetMessageToDevice(ctx context.Context, devCmd types.DeviceGetMessage) {
	attributeIds := make([]zcl.AttributeID, 0, len(devCmd.Attributes))
	for _, attr := range devCmd.Attributes {
		attributeIds = append(attributeIds, zcl.AttributeID(attr))
	}

	message := globalMessage(devCmd.ClusterID, devCmd.Endpoint, global.ReadAttributesID, &global.ReadAttributes{
		Identifier: attributeIds,
	})

	if err := mh.send(ctx, devCmd.IEEEAddress, message); err != nil {
		mh.logger.Error("[ProccessGetMessageToDevice] %v", err)
	}
}

func (mh *zigbeeRouter) ProccessWriteMessageToDevice(ctx context.Context, devCmd types.DeviceWriteMessage) {
	records := make([]global.WriteAttributesRecord, 0, len(devCmd.Attributes))
	for _, attr := range devCmd.Attributes {
		records = append(records, global.WriteAttributesRecord{
			Identifier: zcl.AttributeID(attr.ID),
			DataTypeValue: &zcl.AttributeDataTypeValue{
				DataType: zcl.AttributeDataType(attr.DataType),
				Value:    attr.Value,
			},
		})
	}

	message := globalMessage(devCmd.ClusterID, devCmd.Endpoint, global.WriteAttributesID, &global.WriteAttributes{
		Records: records,
	})

	if err := mh.send(ctx, devCmd.IEEEAddress, message); err != nil {
		mh.logger.Error("[ProccessWriteMessageToDevice] %v", err)
	}
}

func (mh *zigbeeRouter) ProccessCommandMessageToDevice(ctx context.Context, devCmd types.DeviceCommandMessage) {
	message := zcl.Message{
		FrameType:           zcl.FrameLocal,
		Direction:           zcl.ClientToServer,
		Manufacturer:        zigbee.NoManufacturer,
		ClusterID:           zigbee.ClusterID(devCmd.ClusterID),
		SourceEndpoint:      adapterEndpoint,
		DestinationEndpoint: zigbee.Endpoint(devCmd.Endpoint),
		CommandIdentifier:   zcl.CommandIdentifier(devCmd.CommandIdentifier),
	}

	command, err := mh.zclCommandRegistry.GetLocalCommand(message.ClusterID, message.Manufacturer, message.Direction, message.CommandIdentifier)
	if err != nil {
		mh.logger.Error("[ProccessCommandMessageToDevice] No local command for ClusterID: %v, CommandIdentifier: %v: %v",
			message.ClusterID,
			message.CommandIdentifier,
			err)
		return
	}

	reflector.SetStructProperties(devCmd.CommandData, command)

	message.Command = command

	if err := mh.send(ctx, devCmd.IEEEAddress, message); err != nil {
		mh.logger.Error("[ProccessCommandMessageToDevice] %v", err)
	}
}

func (mh *zigbeeRouter) supportedDevice(ctx context.Context, ieeeAddress uint64) (db.Device, bool) {
	device, err := mh.database.GetDevice(ctx, ieeeAddress)
	if err != nil {
		if !errors.Is(err, db.ErrDeviceNotFound) {
			mh.logger.Error("Error reading device: %v", err)
		}
		return db.Device{}, false
	}

	return device, device.Definition != ""
}

func deviceEndpoint(device db.Device) uint8 {
	if device.Endpoint == 0 {
		return defaultEndpoint
	}

	return device.Endpoint
}

func (mh *zigbeeRouter) ProccessSetMessageToDevice(ctx context.Context, devCmd types.DeviceSetMessage) {
	device, ok := mh.supportedDevice(ctx, devCmd.IEEEAddress)
	if !ok {
		mh.logger.Warn("SET for 0x%x ignored, the device has no definition", devCmd.IEEEAddress)
		return
	}

	def, ok := mh.registry.Find(device.ModelID)
	if !ok {
		mh.logger.Warn("SET for 0x%x ignored, definition %v is not loaded", devCmd.IEEEAddress, device.Definition)
		return
	}

	commands, err := mh.converter.ToCommands(devCmd.IEEEAddress, deviceEndpoint(device), def, devCmd.Payload)
	if err != nil {
		mh.logger.Warn("SET for 0x%x: %v", devCmd.IEEEAddress, err)
	}

	for _, cmd := range commands.Local {
		mh.ProccessCommandMessageToDevice(ctx, cmd)
	}

	for _, w := range commands.Writes {
		mh.ProccessWriteMessageToDevice(ctx, w)
	}
}

func (mh *zigbeeRouter) ProccessStateGetMessageToDevice(ctx context.Context, devCmd types.DeviceStateGetMessage) {
	device, ok := mh.supportedDevice(ctx, devCmd.IEEEAddress)
	if !ok {
		mh.logger.Warn("GET for 0x%x ignored, the device has no definition", devCmd.IEEEAddress)
		return
	}

	def, ok := mh.registry.Find(device.ModelID)
	if !ok {
		mh.logger.Warn("GET for 0x%x ignored, definition %v is not loaded", devCmd.IEEEAddress, device.Definition)
		return
	}

	requests, err := mh.converter.ReadRequests(devCmd.IEEEAddress, deviceEndpoint(device), def, devCmd.Properties)
	if err != nil {
		mh.logger.Warn("GET for 0x%x: %v", devCmd.IEEEAddress, err)
	}

	for _, r := range requests {
		mh.ProccessGetMessageToDevice(ctx, r)
	}
}

// saveNode records the network state of a node. The returned device is only
// meaningful when err is nil.
func (mh *zigbeeRouter) saveNode(ctx context.Context, znode zigbee.Node) (db.Device, error) {
	device, err := mh.database.UpdateDevice(ctx, uint64(znode.IEEEAddress), func(d *db.Device) {
		d.NetworkAddress = uint16(znode.NetworkAddress)
		d.LogicalType = uint8(znode.LogicalType)
		d.LQI = znode.LQI
		d.Depth = znode.Depth
		d.LastDiscovered = znode.LastDiscovered
		d.LastReceived = znode.LastReceived
	})
	if err != nil {
		mh.logger.Error("Error saving node 0x%x: %v", uint64(znode.IEEEAddress), err)
	}

	return device, err
}

func (mh *zigbeeRouter) processNodeJoin(ctx context.Context, e zigbee.NodeJoinEvent) {
	device, err := mh.saveNode(ctx, e.Node)

	if mh.onDeviceJoin != nil {
		mh.onDeviceJoin(e)
	}

	if err == nil {
		mh.ensureInterviewed(ctx, device)
	}
}

func (mh *zigbeeRouter) processNodeLeave(ctx context.Context, e zigbee.NodeLeaveEvent) {
	if err := mh.database.DeleteDevice(ctx, uint64(e.IEEEAddress)); err != nil {
		mh.logger.Error("Error deleting node 0x%x: %v", uint64(e.IEEEAddress), err)
	}

	if mh.onDeviceLeave != nil {
		mh.onDeviceLeave(e)
	}
}

func (mh *zigbeeRouter) processNodeUpdate(ctx context.Context, e zigbee.NodeUpdateEvent) {
	device, err := mh.saveNode(ctx, e.Node)

	if mh.onDeviceUpdate != nil {
		mh.onDeviceUpdate(e)
	}

	if err == nil {
		mh.ensureInterviewed(ctx, device)
	}
}

func (mh *zigbeeRouter) processIncomingMessage(ctx context.Context, e zigbee.NodeIncomingMessageEvent) {
	device, saveErr := mh.saveNode(ctx, e.Node)
	known := saveErr == nil

	msg := e.IncomingMessage
	message, err := mh.zclCommandRegistry.Unmarshal(msg.ApplicationMessage)
	if err != nil {
		mh.logger.Warn("[ProcessIncomingMessage] Error parse incomming message: %v", err)
		return
	}

	mh.logger.Debug("[ProcessIncomingMessage] Incomming command of type (%T) is received. ClusterId=%v, SourceEndpoint=%v",
		message.Command, message.ClusterID, message.SourceEndpoint)

	ieeeAddress := uint64(msg.SourceAddress.IEEEAddress)
	clusterID := uint16(msg.ApplicationMessage.ClusterID)

	switch cmd := message.Command.(type) {
	case *global.ReportAttributes:
		attrs := make(map[uint16]interface{}, len(cmd.Records))
		for _, r := range cmd.Records {
			attrs[uint16(r.Identifier)] = r.DataTypeValue.Value
		}
		mh.processAttributes(ctx, ieeeAddress, msg.LinkQuality, clusterID, attrs)
	case *global.ReadAttributesResponse:
		attrs := make(map[uint16]interface{}, len(cmd.Records))
		for _, r := range cmd.Records {
			if r.Status != 0 {
				mh.logger.Debug("Attribute %v of cluster %v on 0x%x not read, status %v", r.Identifier, clusterID, ieeeAddress, r.Status)
				continue
			}
			attrs[uint16(r.Identifier)] = r.DataTypeValue.Value
		}
		if clusterID == converter.ClusterBasic && known && !device.Interviewed() {
			mh.processBasicAttributes(ctx, ieeeAddress, attrs)
			return
		}
		mh.processAttributes(ctx, ieeeAddress, msg.LinkQuality, clusterID, attrs)
	case *global.DefaultResponse:
		mh.processDefaultResponse(msg, cmd)
	case *global.ConfigureReportingResponse:
		mh.logger.Debug("Configure reporting response from 0x%x, cluster %v: %+v", ieeeAddress, clusterID, cmd)
	case *ias_zone.ZoneStatusChangeNotification:
		mh.processZoneStatusChangeNotification(msg, cmd)
	}

	if known {
		mh.ensureInterviewed(ctx, device)
	}
}

// processAttributes publishes the converted state of a supported device, or
// the raw attributes named after the cluster dictionary otherwise.
func (mh *zigbeeRouter) processAttributes(ctx context.Context, ieeeAddress uint64, linkQuality uint8, clusterID uint16, attrs map[uint16]interface{}) {
	if len(attrs) == 0 {
		return
	}

	if device, ok := mh.supportedDevice(ctx, ieeeAddress); ok {
		if def, ok := mh.registry.Find(device.ModelID); ok {
			state := mh.converter.ToState(def, clusterID, attrs)
			if len(state) > 0 && mh.onDeviceState != nil {
				mh.onDeviceState(mqtt.DeviceStateMessage{
					IEEEAddress: ieeeAddress,
					LinkQuality: linkQuality,
					State:       state,
				})
			}
			return
		}
	}

	clusterDef := mh.zclDefService.GetById(clusterID)

	clusterAttr := make(map[string]interface{}, len(attrs))
	for id, v := range attrs {
		name := fmt.Sprintf("0x%04x", id)
		if attrDef, ok := clusterDef.Attributes[id]; ok {
			name = attrDef.Name
		}
		clusterAttr[name] = v
	}

	if mh.onDeviceMessage != nil {
		mh.onDeviceMessage(mqtt.DeviceMessage{
			IEEEAddress: ieeeAddress,
			LinkQuality: linkQuality,
			Message: mqtt.DeviceAttributesReportMessage{
				ClusterID:         clusterDef.ID,
				ClusterName:       clusterDef.Name,
				ClusterAttributes: clusterAttr,
			},
		})
	}
}

func (mh *zigbeeRouter) processZoneStatusChangeNotification(msg zigbee.IncomingMessage, cmd *ias_zone.ZoneStatusChangeNotification) {
	clusterDef := mh.zclDefService.GetById(uint16(msg.ApplicationMessage.ClusterID))

	if mh.onDeviceMessage != nil {
		mh.onDeviceMessage(mqtt.DeviceMessage{
			IEEEAddress: uint64(msg.SourceAddress.IEEEAddress),
			LinkQuality: msg.LinkQuality,
			Message: mqtt.DeviceAttributesReportMessage{
				ClusterID:         clusterDef.ID,
				ClusterName:       clusterDef.Name,
				ClusterAttributes: cmd,
			},
		})
	}
}

func (mh *zigbeeRouter) processDefaultResponse(msg zigbee.IncomingMessage, cmd *global.DefaultResponse) {
	if cmd.Status != 0 {
		mh.logger.Warn("Command %v on cluster %v of 0x%x failed with status 0x%02x",
			cmd.CommandIdentifier, uint16(msg.ApplicationMessage.ClusterID), uint64(msg.SourceAddress.IEEEAddress), cmd.Status)
	}

	if mh.onDeviceMessage != nil {
		mh.onDeviceMessage(mqtt.DeviceMessage{
			IEEEAddress: uint64(msg.SourceAddress.IEEEAddress),
			LinkQuality: msg.LinkQuality,
			Message: mqtt.DeviceDefaultResponseMessage{
				ClusterID:         uint16(msg.ApplicationMessage.ClusterID),
				CommandIdentifier: uint8(cmd.CommandIdentifier),
				Status:            uint8(cmd.Status),
			},
		})
	}
}

func (mh *zigbeeRouter) StartAsync(ctx context.Context) error {
	z, port, err := mh.initZStack(ctx)
	if err != nil {
		return fmt.Errorf("zstack initialization: %w", err)
	}

	mh.provider = z
	mh.stop = func() {
		z.Stop()
		if err := port.Close(); err != nil {
			mh.logger.Warn("Error closing serial port: %v", err)
		}
	}

	go mh.startEventLoop(ctx)

	return nil
}

func (mh *zigbeeRouter) Stop() {
	if mh.stop == nil {
		return
	}

	mh.stop()
}

func (mh *zigbeeRouter) initZStack(ctx context.Context) (*zstack.ZStack, serial.Port, error) {
	log := mh.logger.Named("[init zstack]")

	initCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	mode := &serial.Mode{
		BaudRate: int(mh.configuration.SerialConfiguration.BaudRate),
	}

	port, err := mh.openPort(mh.configuration.SerialConfiguration.PortName, mode)
	if err != nil {
		return nil, nil, fmt.Errorf("open serial port %v: %w", mh.configuration.SerialConfiguration.PortName, err)
	}
	if err := port.SetRTS(true); err != nil {
		log.Warn("error setting RTS: %v", err)
	}

	/* Node table is the cache of network nodes, seeded from the DB. */
	dbDevices, err := mh.database.GetDevices(initCtx)
	if err != nil {
		closePort(log, port)
		return nil, nil, err
	}
	t := zstack.NewNodeTable()
	znodes := make([]zigbee.Node, len(dbDevices))
	for i, dbNode := range dbDevices {
		znodes[i] = zigbee.Node{
			IEEEAddress:    zigbee.IEEEAddress(dbNode.IEEEAddress),
			NetworkAddress: zigbee.NetworkAddress(dbNode.NetworkAddress),
			LogicalType:    zigbee.LogicalType(dbNode.LogicalType),
			LQI:            dbNode.LQI,
			Depth:          dbNode.Depth,
			LastDiscovered: dbNode.LastDiscovered,
			LastReceived:   dbNode.LastReceived,
		}
	}
	t.Load(znodes)

	z := zstack.New(port, t)

	netCfg := zigbee.NetworkConfiguration{
		PANID:         zigbee.PANID(mh.configuration.ZNetworkConfiguration.PANID),
		ExtendedPANID: zigbee.ExtendedPANID(mh.configuration.ZNetworkConfiguration.ExtendedPANID),
		NetworkKey:    mh.configuration.ZNetworkConfiguration.NetworkKey,
		Channel:       mh.configuration.ZNetworkConfiguration.Channel,
	}

	if err := z.Initialise(initCtx, netCfg); err != nil {
		z.Stop()
		closePort(log, port)
		return nil, nil, fmt.Errorf("initialise adapter: %w", err)
	}

	if mh.configuration.PermitJoin {
		if err := z.PermitJoin(initCtx, true); err != nil {
			log.Warn("error permit join: %v", err)
		}
	} else {
		if err := z.DenyJoin(initCtx); err != nil {
			log.Warn("error deny join: %v", err)
		}
	}

	if err := z.RegisterAdapterEndpoint(
		initCtx,
		adapterEndpoint,
		zigbee.ProfileHomeAutomation,
		1,
		1,
		[]zigbee.ClusterID{},
		[]zigbee.ClusterID{}); err != nil {
		z.Stop()
		closePort(log, port)
		return nil, nil, fmt.Errorf("register adapter endpoint: %w", err)
	}

	log.Info("adapter initialised, %d known nodes", len(znodes))

	return z, port, nil
}

func closePort(log logger.Logger, port io.Closer) {
	if err := port.Close(); err != nil {
		log.Warn("error closing serial port: %v", err)
	}
}

func (mh *zigbeeRouter) startEventLoop(ctx context.Context) {
	mh.logger.Info("[Event loop] Start event")
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		event, err := mh.provider.ReadEvent(ctx)
		if err != nil {
			if ctx.Err() == nil {
				mh.logger.Warn("[Event loop] Error read event: %v", err)
			}
			continue
		}

		switch e := event.(type) {
		case zigbee.NodeJoinEvent:
			mh.logger.Info("[Event loop] Node join: 0x%x", uint64(e.IEEEAddress))
			go mh.processNodeJoin(ctx, e)
		case zigbee.NodeLeaveEvent:
			mh.logger.Info("[Event loop] Node leave: 0x%x", uint64(e.IEEEAddress))
			go mh.processNodeLeave(ctx, e)
		case zigbee.NodeUpdateEvent:
			mh.logger.Debug("[Event loop] Node update: 0x%x", uint64(e.IEEEAddress))
			go mh.processNodeUpdate(ctx, e)
		case zigbee.NodeIncomingMessageEvent:
			mh.logger.Debug("[Event loop] Node message: %v", e)
			go mh.processIncomingMessage(ctx, e)
		}
	}
}
