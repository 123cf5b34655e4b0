package mqtt

import (
	"fmt"
	"time"

	"github.com/acheta/depth2mqtt/internal/db"
	"github.com/acheta/depth2mqtt/internal/definition"
)

// DeviceAttributesReportMessage is published for devices without a
// definition: raw attribute values keyed by attribute name.
type DeviceAttributesReportMessage struct {
	ClusterID         uint16
	ClusterName       string
	ClusterAttributes interface{}
}

type DeviceSetMessage struct {
	ClusterID         uint16
	Endpoint          uint8
	CommandIdentifier uint8
	CommandData       map[string]interface{}
}

type DeviceGetMessage struct {
	ClusterID  uint16
	Endpoint   uint8
	Attributes []uint16
}

type DeviceDefaultResponseMessage struct {
	ClusterID         uint16
	CommandIdentifier uint8
	Status            uint8
}

type DeviceMessage struct {
	IEEEAddress uint64
	LinkQuality uint8
	Message     interface{}
}

// DeviceStateMessage is the zigbee2mqtt style state of a supported device.
type DeviceStateMessage struct {
	IEEEAddress uint64
	LinkQuality uint8
	State       map[string]interface{}
}

// Payload flattens the state into the published JSON object.
func (m DeviceStateMessage) Payload() map[string]interface{} {
	ret := make(map[string]interface{}, len(m.State)+1)
	for k, v := range m.State {
		ret[k] = v
	}
	ret["linkquality"] = m.LinkQuality

	return ret
}

type DeviceDescriptionMessage struct {
	IEEEAddress      uint64
	LogicalType      uint8
	ManufacturerCode uint16
	Endpoints        []EndpointDescription
}

type EndpointDescription struct {
	Endpoint       uint8
	ProfileID      uint16
	DeviceID       uint16
	DeviceVersion  uint8
	InClusterList  []uint16
	OutClusterList []uint16
}

type SetGatewayConfig struct {
	PermitJoin bool
}

// DeviceInterviewMessage is published once a joined device has identified itself.
type DeviceInterviewMessage struct {
	IEEEAddress      uint64
	ManufacturerName string
	ModelID          string
	Supported        bool
	Definition       *DefinitionMessage `json:",omitempty"`
}

type DefinitionMessage struct {
	Definition definition.Definition `json:"definition"`
	Exposes    []definition.Expose   `json:"exposes"`
}

func NewDefinitionMessage(d definition.Definition) DefinitionMessage {
	return DefinitionMessage{
		Definition: d,
		Exposes:    d.Exposes(),
	}
}

type DeviceInfo struct {
	IEEEAddress         string    `json:"ieee_address"`
	NetworkAddress      uint16    `json:"network_address"`
	ManufacturerName    string    `json:"manufacturer,omitempty"`
	ModelID             string    `json:"model_id,omitempty"`
	Definition          string    `json:"definition,omitempty"`
	Supported           bool      `json:"supported"`
	Interviewed         bool      `json:"interview_completed"`
	ReportingConfigured bool      `json:"reporting_configured"`
	LinkQuality         uint8     `json:"linkquality"`
	LastReceived        time.Time `json:"last_seen"`
}

func NewDeviceInfo(d db.Device) DeviceInfo {
	return DeviceInfo{
		IEEEAddress:         FormatIEEEAddress(d.IEEEAddress),
		NetworkAddress:      d.NetworkAddress,
		ManufacturerName:    d.ManufacturerName,
		ModelID:             d.ModelID,
		Definition:          d.Definition,
		Supported:           d.Definition != "",
		Interviewed:         d.Interviewed(),
		ReportingConfigured: d.ReportingConfigured,
		LinkQuality:         d.LQI,
		LastReceived:        d.LastReceived,
	}
}

func FormatIEEEAddress(ieeeAddress uint64) string {
	return fmt.Sprintf("0x%016x", ieeeAddress)
}
