package db

import "time"

type Device struct {
	IEEEAddress    uint64
	NetworkAddress uint16
	LogicalType    uint8
	LQI            uint8
	Depth          uint8
	LastDiscovered time.Time
	LastReceived   time.Time

	// Filled in by the interview.
	ManufacturerName string
	ModelID          string
	Endpoint         uint8

	// Model of the definition the device was matched to, empty when unsupported.
	Definition          string
	ReportingConfigured bool
}

// Interviewed reports whether the basic cluster identification was read.
func (d Device) Interviewed() bool {
	return d.ModelID != ""
}

type DeviceDBOptions struct {
	// InMemory keeps everything in RAM, the directory is ignored.
	InMemory bool
}
