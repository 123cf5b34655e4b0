package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shimmeringbee/zcl"
	"github.com/shimmeringbee/zcl/commands/global"
	"github.com/shimmeringbee/zigbee"

	"github.com/acheta/depth2mqtt/internal/converter"
	"github.com/acheta/depth2mqtt/internal/db"
	"github.com/acheta/depth2mqtt/internal/definition"
	"github.com/acheta/depth2mqtt/internal/mqtt"
	"github.com/acheta/depth2mqtt/internal/types"
	"github.com/acheta/depth2mqtt/internal/zcldef"
)

// interviewRetry is how long an unanswered interview blocks a new one.
const interviewRetry = time.Minute

// TriggerEffect is the identify cluster command driving light effects.
type TriggerEffect struct {
	EffectIdentifier uint8
	EffectVariant    uint8
}

func registerIdentify(cr *zcl.CommandRegistry) {
	cr.RegisterLocal(zigbee.ClusterID(converter.ClusterIdentify), zigbee.NoManufacturer, zcl.ClientToServer, zcl.CommandIdentifier(converter.CommandTriggerEffect), &TriggerEffect{})
}

// ensureInterviewed starts the interview of a device that has not reported
// its model yet, and finishes the setup of a matched device whose reporting
// is not configured.
func (mh *zigbeeRouter) ensureInterviewed(ctx context.Context, device db.Device) {
	if device.IEEEAddress == 0 {
		return
	}

	if device.Interviewed() {
		if device.Definition == "" || device.ReportingConfigured {
			return
		}
		if def, ok := mh.registry.Find(device.ModelID); ok && mh.startInterview(device.IEEEAddress) {
			defer mh.finishInterview(device.IEEEAddress)
			mh.configure(ctx, device, def)
		}
		return
	}

	if !mh.startInterview(device.IEEEAddress) {
		return
	}

	mh.interview(ctx, device)
}

func (mh *zigbeeRouter) startInterview(ieeeAddress uint64) bool {
	mh.interviewMu.Lock()
	defer mh.interviewMu.Unlock()

	if started, ok := mh.interviews[ieeeAddress]; ok && time.Since(started) < interviewRetry {
		return false
	}
	mh.interviews[ieeeAddress] = time.Now()

	return true
}

func (mh *zigbeeRouter) finishInterview(ieeeAddress uint64) {
	mh.interviewMu.Lock()
	defer mh.interviewMu.Unlock()

	delete(mh.interviews, ieeeAddress)
}

// interview finds the application endpoint and asks the basic cluster for
// manufacturer and model; the answer arrives as a read attributes response.
func (mh *zigbeeRouter) interview(ctx context.Context, device db.Device) {
	mh.logger.Info("Interviewing 0x%x", device.IEEEAddress)

	queryCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	endpoint := deviceEndpoint(device)
	endpoints, err := mh.provider.QueryNodeEndpoints(queryCtx, zigbee.IEEEAddress(device.IEEEAddress))
	if err != nil {
		mh.logger.Warn("Failed to get endpoints of 0x%x, using %d: %v", device.IEEEAddress, endpoint, err)
	} else if len(endpoints) > 0 {
		endpoint = uint8(endpoints[0])
	}

	if endpoint != device.Endpoint {
		if _, err := mh.database.UpdateDevice(ctx, device.IEEEAddress, func(d *db.Device) { d.Endpoint = endpoint }); err != nil {
			mh.logger.Error("Error saving endpoint of 0x%x: %v", device.IEEEAddress, err)
		}
	}

	mh.ProccessGetMessageToDevice(ctx, types.DeviceGetMessage{
		IEEEAddress: device.IEEEAddress,
		ClusterID:   converter.ClusterBasic,
		Endpoint:    endpoint,
		Attributes:  []uint16{converter.AttrBasicManufacturerName, converter.AttrBasicModelID},
	})
}

func attributeString(v interface{}) string {
	var s string
	switch v := v.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case fmt.Stringer:
		s = v.String()
	}

	return strings.TrimRight(s, "\x00 ")
}

// processBasicAttributes completes the interview: the model identifier
// selects the definition, a selected definition gets its reporting set up.
func (mh *zigbeeRouter) processBasicAttributes(ctx context.Context, ieeeAddress uint64, attrs map[uint16]interface{}) {
	manufacturer := attributeString(attrs[converter.AttrBasicManufacturerName])
	model := attributeString(attrs[converter.AttrBasicModelID])
	if model == "" {
		mh.logger.Warn("0x%x did not report a model identifier", ieeeAddress)
		return
	}

	def, found := mh.registry.Find(model)

	device, err := mh.database.UpdateDevice(ctx, ieeeAddress, func(d *db.Device) {
		if d.ModelID != model {
			d.ReportingConfigured = false
		}
		d.ManufacturerName = manufacturer
		d.ModelID = model
		d.Definition = ""
		if found {
			d.Definition = def.Model
		}
	})
	if err != nil {
		mh.logger.Error("Error saving interview of 0x%x: %v", ieeeAddress, err)
		return
	}

	interview := mqtt.DeviceInterviewMessage{
		IEEEAddress:      ieeeAddress,
		ManufacturerName: manufacturer,
		ModelID:          model,
		Supported:        found,
	}

	if found {
		mh.logger.Info("0x%x is %v %v", ieeeAddress, def.Vendor, def.Model)
		defMsg := mqtt.NewDefinitionMessage(def)
		interview.Definition = &defMsg
	} else {
		mh.logger.Warn("0x%x model %q (%v) has no definition, forwarding raw attributes", ieeeAddress, model, manufacturer)
	}

	if mh.onDeviceInterview != nil {
		mh.onDeviceInterview(interview)
	}

	if found && !device.ReportingConfigured {
		mh.configure(ctx, device, def)
	}

	mh.finishInterview(ieeeAddress)
}

func reportingRecord(r types.ReportingConfiguration) global.ConfigureReportingRecord {
	change := &zcl.AttributeDataValue{}
	if zcldef.IsAnalog(r.DataType) {
		if v, err := converter.ZCLValue(r.DataType, r.Change); err == nil {
			change.Value = v
		}
	}

	return global.ConfigureReportingRecord{
		Direction:        0x00,
		Identifier:       zcl.AttributeID(r.AttributeID),
		DataType:         zcl.AttributeDataType(r.DataType),
		MinimumInterval:  r.Min,
		MaximumInterval:  r.Max,
		ReportableChange: change,
	}
}

// configure binds every reported cluster to the coordinator and sends the
// reporting configuration of the definition, one request per cluster.
func (mh *zigbeeRouter) configure(ctx context.Context, device db.Device, def definition.Definition) {
	reporting, err := mh.converter.Reporting(def)
	if err != nil {
		mh.logger.Error("Reporting of %v: %v", def.Model, err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	endpoint := deviceEndpoint(device)
	configured := true

	for _, clusterID := range converter.Clusters(reporting) {
		if err := mh.provider.BindNodeToController(ctx, zigbee.IEEEAddress(device.IEEEAddress), zigbee.Endpoint(endpoint), adapterEndpoint, zigbee.ClusterID(clusterID)); err != nil {
			mh.logger.Warn("Failed to bind cluster 0x%04x of 0x%x: %v", clusterID, device.IEEEAddress, err)
			configured = false
			continue
		}

		var records []global.ConfigureReportingRecord
		for _, r := range reporting {
			if r.ClusterID == clusterID {
				records = append(records, reportingRecord(r))
			}
		}

		message := globalMessage(clusterID, endpoint, global.ConfigureReportingID, &global.ConfigureReporting{
			Records: records,
		})

		if err := mh.send(ctx, device.IEEEAddress, message); err != nil {
			mh.logger.Warn("Failed to configure reporting of cluster 0x%04x on 0x%x: %v", clusterID, device.IEEEAddress, err)
			configured = false
		}
	}

	if !configured {
		return
	}

	if _, err := mh.database.UpdateDevice(ctx, device.IEEEAddress, func(d *db.Device) { d.ReportingConfigured = true }); err != nil {
		mh.logger.Error("Error saving reporting state of 0x%x: %v", device.IEEEAddress, err)
		return
	}

	mh.logger.Info("Reporting configured on 0x%x (%d attributes)", device.IEEEAddress, len(reporting))
}
