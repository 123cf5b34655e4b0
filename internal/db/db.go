package db

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v3"

	"github.com/acheta/depth2mqtt/internal/logger"
)

var ErrDeviceNotFound = errors.New("device not found")

type DeviceDB interface {
	GetDevices(ctx context.Context) ([]Device, error)
	GetDevice(ctx context.Context, ieeeAddress uint64) (Device, error)
	SaveDevice(ctx context.Context, device Device) error
	UpdateDevice(ctx context.Context, ieeeAddress uint64, update func(device *Device)) (Device, error)
	DeleteDevice(ctx context.Context, ieeeAddress uint64) error
	Close(ctx context.Context) error
}

func NewDeviceDB(dirname string, options DeviceDBOptions) (DeviceDB, error) {
	opt := badger.DefaultOptions(dirname)
	if options.InMemory {
		opt = badger.DefaultOptions("").WithInMemory(true)
	}
	opt.ValueLogFileSize = 1024 * 1024 * 40
	log := logger.GetLogger("[Device DB]")
	opt.Logger = &badgerLogger{logger: log}

	db, err := badger.Open(opt)
	if err != nil {
		return nil, fmt.Errorf("open device db %v: %w", dirname, err)
	}

	return &deviceDB{
		db:     db,
		logger: log,
	}, nil
}

type deviceDB struct {
	db     *badger.DB
	logger logger.Logger

	// updateMu orders read-modify-write updates made by this process.
	updateMu sync.Mutex
}

func deviceKey(ieeeAddress uint64) []byte {
	key := make([]byte, 8)
	binary.LittleEndian.PutUint64(key, ieeeAddress)

	return key
}

func decodeDevice(v []byte, d *Device) error {
	return gob.NewDecoder(bytes.NewReader(v)).Decode(d)
}

func encodeDevice(device Device) ([]byte, error) {
	buf := bytes.Buffer{}
	if err := gob.NewEncoder(&buf).Encode(device); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (d *deviceDB) GetDevices(ctx context.Context) ([]Device, error) {
	var ret []Device
	err := d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				dev := Device{
					IEEEAddress: binary.LittleEndian.Uint64(item.Key()),
				}

				if err := decodeDevice(v, &dev); err != nil {
					return err
				}

				ret = append(ret, dev)

				return nil
			})

			if err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return ret, nil
}

func (d *deviceDB) SaveDevice(ctx context.Context, device Device) error {
	value, err := encodeDevice(device)
	if err != nil {
		return err
	}

	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(deviceKey(device.IEEEAddress), value)
	})
}

const updateAttempts = 10

// UpdateDevice applies update to the stored device, or to a new one when none
// is stored yet, inside a single transaction. A transaction that conflicts with
// a concurrent write is retried, so update may run more than once.
func (d *deviceDB) UpdateDevice(ctx context.Context, ieeeAddress uint64, update func(device *Device)) (Device, error) {
	key := deviceKey(ieeeAddress)

	d.updateMu.Lock()
	defer d.updateMu.Unlock()

	var (
		ret Device
		err error
	)
	for attempt := 0; attempt < updateAttempts; attempt++ {
		err = d.db.Update(func(txn *badger.Txn) error {
			ret = Device{IEEEAddress: ieeeAddress}

			item, err := txn.Get(key)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return err
			default:
				if err := item.Value(func(v []byte) error { return decodeDevice(v, &ret) }); err != nil {
					return err
				}
			}

			update(&ret)
			ret.IEEEAddress = ieeeAddress

			value, err := encodeDevice(ret)
			if err != nil {
				return err
			}

			return txn.Set(key, value)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		d.logger.Debug("Update of 0x%x conflicted, retrying", ieeeAddress)
	}

	if err != nil {
		return Device{}, fmt.Errorf("update device 0x%x: %w", ieeeAddress, err)
	}

	return ret, nil
}

func (d *deviceDB) DeleteDevice(ctx context.Context, ieeeAddress uint64) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(deviceKey(ieeeAddress))
	})
}

func (d *deviceDB) GetDevice(ctx context.Context, ieeeAddress uint64) (Device, error) {
	var ret Device
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(deviceKey(ieeeAddress))
		if err != nil {
			return err
		}

		return item.Value(func(v []byte) error {
			return decodeDevice(v, &ret)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return Device{}, fmt.Errorf("0x%016x: %w", ieeeAddress, ErrDeviceNotFound)
	}
	if err != nil {
		return Device{}, err
	}

	return ret, nil
}

func (d *deviceDB) Close(ctx context.Context) error {
	return d.db.Close()
}

type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(format string, v ...interface{}) { l.logger.Error(format, v...) }

func (l *badgerLogger) Warningf(format string, v ...interface{}) { l.logger.Warn(format, v...) }

func (l *badgerLogger) Infof(format string, v ...interface{}) { l.logger.Debug(format, v...) }

func (l *badgerLogger) Debugf(format string, v ...interface{}) { l.logger.Debug(format, v...) }
