package router

import (
	"context"
	"sync"
	"testing"

	"github.com/shimmeringbee/zcl"
	"github.com/shimmeringbee/zcl/commands/global"
	"github.com/shimmeringbee/zigbee"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial.v1"

	"github.com/acheta/depth2mqtt/internal/configuration"
	"github.com/acheta/depth2mqtt/internal/converter"
	"github.com/acheta/depth2mqtt/internal/db"
	"github.com/acheta/depth2mqtt/internal/devices"
	"github.com/acheta/depth2mqtt/internal/mqtt"
	"github.com/acheta/depth2mqtt/internal/registry"
	"github.com/acheta/depth2mqtt/internal/types"
	"github.com/acheta/depth2mqtt/internal/zcldef"
)

const sensorAddress = uint64(0x00124b0012345678)

type providerMock struct {
	mock.Mock
}

func (m *providerMock) ReadEvent(ctx context.Context) (interface{}, error) {
	args := m.Called(ctx)
	return args.Get(0), args.Error(1)
}

func (m *providerMock) SendApplicationMessageToNode(ctx context.Context, destinationAddress zigbee.IEEEAddress, message zigbee.ApplicationMessage, requireAck bool) error {
	return m.Called(ctx, destinationAddress, message, requireAck).Error(0)
}

func (m *providerMock) BindNodeToController(ctx context.Context, nodeAddress zigbee.IEEEAddress, sourceEndpoint zigbee.Endpoint, destinationEndpoint zigbee.Endpoint, cluster zigbee.ClusterID) error {
	return m.Called(ctx, nodeAddress, sourceEndpoint, destinationEndpoint, cluster).Error(0)
}

func (m *providerMock) QueryNodeDescription(ctx context.Context, nodeAddress zigbee.IEEEAddress) (zigbee.NodeDescription, error) {
	args := m.Called(ctx, nodeAddress)
	return args.Get(0).(zigbee.NodeDescription), args.Error(1)
}

func (m *providerMock) QueryNodeEndpoints(ctx context.Context, nodeAddress zigbee.IEEEAddress) ([]zigbee.Endpoint, error) {
	args := m.Called(ctx, nodeAddress)
	return args.Get(0).([]zigbee.Endpoint), args.Error(1)
}

func (m *providerMock) QueryNodeEndpointDescription(ctx context.Context, nodeAddress zigbee.IEEEAddress, endpoint zigbee.Endpoint) (zigbee.EndpointDescription, error) {
	args := m.Called(ctx, nodeAddress, endpoint)
	return args.Get(0).(zigbee.EndpointDescription), args.Error(1)
}

func (m *providerMock) PermitJoin(ctx context.Context, allRouters bool) error {
	return m.Called(ctx, allRouters).Error(0)
}

func (m *providerMock) DenyJoin(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// sent returns the application messages passed to the provider, in order.
func (m *providerMock) sent() []zigbee.ApplicationMessage {
	var ret []zigbee.ApplicationMessage
	for _, c := range m.Calls {
		if c.Method == "SendApplicationMessageToNode" {
			ret = append(ret, c.Arguments.Get(2).(zigbee.ApplicationMessage))
		}
	}

	return ret
}

func newTestZigbeeRouter(t *testing.T) (*zigbeeRouter, *providerMock, db.DeviceDB) {
	t.Helper()

	database, err := db.NewDeviceDB("", db.DeviceDBOptions{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(context.Background()) })

	reg := registry.New(registry.Options{Strict: true})
	require.NoError(t, reg.Add(devices.Builtin()...))

	zclDef := zcldef.Default()
	r := newZigbeeRouter(zclDef, database, reg, converter.New(zclDef), &configuration.Configuration{})

	p := &providerMock{}
	r.provider = p

	return r, p, database
}

func saveSensor(t *testing.T, database db.DeviceDB, configured bool) {
	t.Helper()

	_, err := database.UpdateDevice(context.Background(), sensorAddress, func(d *db.Device) {
		d.ManufacturerName = "Acheta"
		d.ModelID = "Depth.Sensor"
		d.Definition = "Depth.Sensor"
		d.Endpoint = 1
		d.ReportingConfigured = configured
	})
	require.NoError(t, err)
}

func TestInterviewSupportedDevice(t *testing.T) {
	r, p, database := newTestZigbeeRouter(t)
	ctx := context.Background()

	p.On("BindNodeToController", mock.Anything, zigbee.IEEEAddress(sensorAddress), zigbee.Endpoint(1), zigbee.Endpoint(1), mock.Anything).Return(nil)
	p.On("SendApplicationMessageToNode", mock.Anything, zigbee.IEEEAddress(sensorAddress), mock.Anything, false).Return(nil)

	var interview mqtt.DeviceInterviewMessage
	r.SubscribeOnDeviceInterview(func(devMsg mqtt.DeviceInterviewMessage) { interview = devMsg })

	r.processBasicAttributes(ctx, sensorAddress, map[uint16]interface{}{
		converter.AttrBasicManufacturerName: "Acheta",
		converter.AttrBasicModelID:          "Depth.Sensor\x00",
	})

	assert.True(t, interview.Supported)
	assert.Equal(t, "Depth.Sensor", interview.ModelID)
	require.NotNil(t, interview.Definition)
	assert.Equal(t, "Acheta", interview.Definition.Definition.Vendor)
	assert.NotEmpty(t, interview.Definition.Exposes)

	// onoff, level, color, temperature and the analog output of the depth
	clusters := []zigbee.ClusterID{0x0006, 0x0008, 0x0300, 0x0402, 0x000d}
	p.AssertNumberOfCalls(t, "BindNodeToController", len(clusters))

	sent := p.sent()
	require.Len(t, sent, len(clusters))
	for i, m := range sent {
		assert.Equal(t, clusters[i], m.ClusterID)
		assert.Equal(t, zigbee.Endpoint(1), m.DestinationEndpoint)
	}

	device, err := database.GetDevice(ctx, sensorAddress)
	require.NoError(t, err)
	assert.Equal(t, "Depth.Sensor", device.Definition)
	assert.Equal(t, "Acheta", device.ManufacturerName)
	assert.True(t, device.ReportingConfigured)
}

func basicResponseEvent(t *testing.T, r *zigbeeRouter, ieeeAddress uint64) zigbee.NodeIncomingMessageEvent {
	t.Helper()

	appMsg, err := r.zclCommandRegistry.Marshal(zcl.Message{
		FrameType:           zcl.FrameGlobal,
		Direction:           zcl.ServerToClient,
		ClusterID:           zigbee.ClusterID(converter.ClusterBasic),
		SourceEndpoint:      1,
		DestinationEndpoint: adapterEndpoint,
		CommandIdentifier:   global.ReadAttributesResponseID,
		Command: &global.ReadAttributesResponse{
			Records: []global.ReadAttributeResponseRecord{
				{
					Identifier:    zcl.AttributeID(converter.AttrBasicManufacturerName),
					DataTypeValue: &zcl.AttributeDataTypeValue{DataType: zcl.TypeStringCharacter8, Value: "Acheta"},
				},
				{
					Identifier:    zcl.AttributeID(converter.AttrBasicModelID),
					DataTypeValue: &zcl.AttributeDataTypeValue{DataType: zcl.TypeStringCharacter8, Value: "Depth.Sensor"},
				},
			},
		},
	})
	require.NoError(t, err)

	node := zigbee.Node{IEEEAddress: zigbee.IEEEAddress(ieeeAddress), LQI: 200}

	return zigbee.NodeIncomingMessageEvent{
		Node: node,
		IncomingMessage: zigbee.IncomingMessage{
			SourceAddress:      zigbee.SourceAddress{IEEEAddress: zigbee.IEEEAddress(ieeeAddress)},
			LinkQuality:        200,
			ApplicationMessage: appMsg,
		},
	}
}

func TestInterviewSurvivesConcurrentNodeEvents(t *testing.T) {
	r, p, database := newTestZigbeeRouter(t)
	ctx := context.Background()

	p.On("QueryNodeEndpoints", mock.Anything, mock.Anything).Return([]zigbee.Endpoint{1}, nil)
	p.On("BindNodeToController", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	p.On("SendApplicationMessageToNode", mock.Anything, mock.Anything, mock.Anything, false).Return(nil)

	const sensors = 10

	var wg sync.WaitGroup
	for i := uint64(0); i < sensors; i++ {
		ieeeAddress := sensorAddress + i
		response := basicResponseEvent(t, r, ieeeAddress)
		update := zigbee.NodeUpdateEvent{Node: zigbee.Node{IEEEAddress: zigbee.IEEEAddress(ieeeAddress), LQI: 180}}

		wg.Add(3)
		go func() {
			defer wg.Done()
			r.processNodeUpdate(ctx, update)
		}()
		go func() {
			defer wg.Done()
			r.processIncomingMessage(ctx, response)
		}()
		go func() {
			defer wg.Done()
			r.processNodeUpdate(ctx, update)
		}()
	}
	wg.Wait()

	for i := uint64(0); i < sensors; i++ {
		device, err := database.GetDevice(ctx, sensorAddress+i)
		require.NoError(t, err)
		assert.Equal(t, "Depth.Sensor", device.Definition)
		assert.Equal(t, "Acheta", device.ManufacturerName)
		assert.True(t, device.ReportingConfigured)
	}
}

func TestInterviewBindFailureLeavesReportingUnconfigured(t *testing.T) {
	r, p, database := newTestZigbeeRouter(t)
	ctx := context.Background()

	p.On("BindNodeToController", mock.Anything, mock.Anything, mock.Anything, mock.Anything, zigbee.ClusterID(0x0300)).Return(assert.AnError)
	p.On("BindNodeToController", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	p.On("SendApplicationMessageToNode", mock.Anything, mock.Anything, mock.Anything, false).Return(nil)

	r.processBasicAttributes(ctx, sensorAddress, map[uint16]interface{}{
		converter.AttrBasicManufacturerName: "Acheta",
		converter.AttrBasicModelID:          "Depth.Sensor",
	})

	assert.Len(t, p.sent(), 4)

	device, err := database.GetDevice(ctx, sensorAddress)
	require.NoError(t, err)
	assert.Equal(t, "Depth.Sensor", device.Definition)
	assert.False(t, device.ReportingConfigured)
}

func TestInterviewUnsupportedDevice(t *testing.T) {
	r, p, database := newTestZigbeeRouter(t)
	ctx := context.Background()

	var interview mqtt.DeviceInterviewMessage
	r.SubscribeOnDeviceInterview(func(devMsg mqtt.DeviceInterviewMessage) { interview = devMsg })

	r.processBasicAttributes(ctx, sensorAddress, map[uint16]interface{}{
		converter.AttrBasicManufacturerName: "Other",
		converter.AttrBasicModelID:          "Other.Thing",
	})

	assert.False(t, interview.Supported)
	assert.Nil(t, interview.Definition)
	p.AssertNotCalled(t, "BindNodeToController", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	device, err := database.GetDevice(ctx, sensorAddress)
	require.NoError(t, err)
	assert.Equal(t, "Other.Thing", device.ModelID)
	assert.Empty(t, device.Definition)
	assert.True(t, device.Interviewed())
}

func TestEnsureInterviewedReadsBasicCluster(t *testing.T) {
	r, p, database := newTestZigbeeRouter(t)
	ctx := context.Background()

	p.On("QueryNodeEndpoints", mock.Anything, zigbee.IEEEAddress(sensorAddress)).Return([]zigbee.Endpoint{2}, nil)
	p.On("SendApplicationMessageToNode", mock.Anything, zigbee.IEEEAddress(sensorAddress), mock.Anything, false).Return(nil)

	r.ensureInterviewed(ctx, db.Device{IEEEAddress: sensorAddress})
	// a second trigger while the first interview is pending is ignored
	r.ensureInterviewed(ctx, db.Device{IEEEAddress: sensorAddress})

	sent := p.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, zigbee.ClusterID(0x0000), sent[0].ClusterID)
	assert.Equal(t, zigbee.Endpoint(2), sent[0].DestinationEndpoint)

	device, err := database.GetDevice(ctx, sensorAddress)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), device.Endpoint)
}

func TestEnsureInterviewedSkipsConfiguredDevice(t *testing.T) {
	r, p, database := newTestZigbeeRouter(t)
	saveSensor(t, database, true)

	device, err := database.GetDevice(context.Background(), sensorAddress)
	require.NoError(t, err)

	r.ensureInterviewed(context.Background(), device)

	assert.Empty(t, p.Calls)
}

func TestProcessAttributesPublishesState(t *testing.T) {
	r, _, database := newTestZigbeeRouter(t)
	saveSensor(t, database, true)

	var state mqtt.DeviceStateMessage
	r.SubscribeOnDeviceState(func(devMsg mqtt.DeviceStateMessage) { state = devMsg })
	r.SubscribeOnDeviceMessage(func(devMsg mqtt.DeviceMessage) { t.Fatalf("unexpected raw message %+v", devMsg) })

	r.processAttributes(context.Background(), sensorAddress, 120, 0x000d, map[uint16]interface{}{0x0055: float32(123.5)})

	assert.Equal(t, sensorAddress, state.IEEEAddress)
	assert.Equal(t, uint8(120), state.LinkQuality)
	assert.Equal(t, map[string]interface{}{"depth": 123.5}, state.State)
}

func TestProcessAttributesForwardsRawForUnknownDevice(t *testing.T) {
	r, _, _ := newTestZigbeeRouter(t)

	var msg mqtt.DeviceMessage
	r.SubscribeOnDeviceMessage(func(devMsg mqtt.DeviceMessage) { msg = devMsg })

	r.processAttributes(context.Background(), sensorAddress, 80, 0x0402, map[uint16]interface{}{0x0000: int64(2150), 0x00ff: uint64(1)})

	report, ok := msg.Message.(mqtt.DeviceAttributesReportMessage)
	require.True(t, ok)
	assert.Equal(t, "msTemperatureMeasurement", report.ClusterName)
	assert.Equal(t, map[string]interface{}{"measuredValue": int64(2150), "0x00ff": uint64(1)}, report.ClusterAttributes)
}

func TestSetMessageSendsCommands(t *testing.T) {
	r, p, database := newTestZigbeeRouter(t)
	saveSensor(t, database, true)

	p.On("SendApplicationMessageToNode", mock.Anything, zigbee.IEEEAddress(sensorAddress), mock.Anything, false).Return(nil)

	r.ProccessSetMessageToDevice(context.Background(), types.DeviceSetMessage{
		IEEEAddress: sensorAddress,
		Payload:     map[string]interface{}{"brightness": 100.0, "state": "ON", "identify": ""},
	})

	sent := p.sent()
	require.Len(t, sent, 3)
	assert.Equal(t, zigbee.ClusterID(0x0006), sent[0].ClusterID)
	assert.Equal(t, zigbee.ClusterID(0x0008), sent[1].ClusterID)
	assert.Equal(t, zigbee.ClusterID(0x0003), sent[2].ClusterID)
}

func TestSetMessageIgnoredForUnknownDevice(t *testing.T) {
	r, p, _ := newTestZigbeeRouter(t)

	r.ProccessSetMessageToDevice(context.Background(), types.DeviceSetMessage{
		IEEEAddress: sensorAddress,
		Payload:     map[string]interface{}{"state": "ON"},
	})

	assert.Empty(t, p.Calls)
}

func TestStateGetSendsReadRequests(t *testing.T) {
	r, p, database := newTestZigbeeRouter(t)
	saveSensor(t, database, true)

	p.On("SendApplicationMessageToNode", mock.Anything, zigbee.IEEEAddress(sensorAddress), mock.Anything, false).Return(nil)

	r.ProccessStateGetMessageToDevice(context.Background(), types.DeviceStateGetMessage{
		IEEEAddress: sensorAddress,
		Properties:  []string{"depth"},
	})

	sent := p.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, zigbee.ClusterID(0x000d), sent[0].ClusterID)
}

func TestSetDeviceConfig(t *testing.T) {
	r, p, _ := newTestZigbeeRouter(t)

	p.On("PermitJoin", mock.Anything, true).Return(nil)
	p.On("DenyJoin", mock.Anything).Return(nil)

	r.ProccessSetDeviceConfigMessage(context.Background(), types.DeviceConfigSetMessage{PermitJoin: true})
	r.ProccessSetDeviceConfigMessage(context.Background(), types.DeviceConfigSetMessage{PermitJoin: false})

	p.AssertExpectations(t)
}

func TestExploreDescribesEndpoints(t *testing.T) {
	r, p, _ := newTestZigbeeRouter(t)

	p.On("QueryNodeDescription", mock.Anything, zigbee.IEEEAddress(sensorAddress)).Return(zigbee.NodeDescription{LogicalType: zigbee.EndDevice}, nil)
	p.On("QueryNodeEndpoints", mock.Anything, zigbee.IEEEAddress(sensorAddress)).Return([]zigbee.Endpoint{1}, nil)
	p.On("QueryNodeEndpointDescription", mock.Anything, zigbee.IEEEAddress(sensorAddress), zigbee.Endpoint(1)).Return(zigbee.EndpointDescription{
		Endpoint:      1,
		ProfileID:     zigbee.ProfileHomeAutomation,
		InClusterList: []zigbee.ClusterID{0x0000, 0x0003, 0x000d},
	}, nil)

	var desc mqtt.DeviceDescriptionMessage
	r.SubscribeOnDeviceDescription(func(devMsg mqtt.DeviceDescriptionMessage) { desc = devMsg })

	r.ProccessGetDeviceDescriptionMessage(context.Background(), types.DeviceExploreMessage{IEEEAddress: sensorAddress})

	require.Len(t, desc.Endpoints, 1)
	assert.Equal(t, []uint16{0x0000, 0x0003, 0x000d}, desc.Endpoints[0].InClusterList)
	assert.Equal(t, uint8(zigbee.EndDevice), desc.LogicalType)
}

func TestTriggerEffectIsRegistered(t *testing.T) {
	r, _, _ := newTestZigbeeRouter(t)

	cmd, err := r.zclCommandRegistry.GetLocalCommand(
		zigbee.ClusterID(converter.ClusterIdentify),
		zigbee.NoManufacturer,
		zcl.ClientToServer,
		zcl.CommandIdentifier(converter.CommandTriggerEffect))
	require.NoError(t, err)
	assert.IsType(t, &TriggerEffect{}, cmd)
}

type fakePort struct {
	serial.Port
	closed bool
}

func (p *fakePort) SetRTS(rts bool) error { return nil }

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

type brokenDeviceDB struct {
	db.DeviceDB
}

func (brokenDeviceDB) GetDevices(ctx context.Context) ([]db.Device, error) {
	return nil, assert.AnError
}

func TestInitZStackClosesPortOnFailure(t *testing.T) {
	zclDef := zcldef.Default()
	r := newZigbeeRouter(zclDef, brokenDeviceDB{}, registry.New(registry.Options{}), converter.New(zclDef), &configuration.Configuration{})

	port := &fakePort{}
	r.openPort = func(name string, mode *serial.Mode) (serial.Port, error) { return port, nil }

	_, _, err := r.initZStack(context.Background())
	require.ErrorIs(t, err, assert.AnError)
	assert.True(t, port.closed)
}
