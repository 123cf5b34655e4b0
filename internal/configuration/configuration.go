package configuration

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v2"
)

const (
	defaultRootTopic     = "depth2mqtt"
	defaultDataDirectory = "./data"
	defaultApiAddress    = "127.0.0.1:8080"
	defaultBaudRate      = 115200
	defaultMqttPort      = 1883
)

type configurationService struct {
	filename      string
	configuration Configuration
	mu            sync.RWMutex
}

// Init reads the YAML configuration file and fills in defaults for omitted values.
func Init(filename string) (ConfigurationService, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read configuration %v: %w", filename, err)
	}

	cfg, err := Parse(buf)
	if err != nil {
		return nil, fmt.Errorf("parse configuration %v: %w", filename, err)
	}

	return &configurationService{
		filename:      filename,
		configuration: cfg,
	}, nil
}

func Parse(buf []byte) (Configuration, error) {
	var cfg Configuration
	if err := yaml.UnmarshalStrict(buf, &cfg); err != nil {
		return Configuration{}, err
	}

	applyDefaults(&cfg)

	return cfg, nil
}

func applyDefaults(cfg *Configuration) {
	if cfg.MqttConfiguration.RootTopic == "" {
		cfg.MqttConfiguration.RootTopic = defaultRootTopic
	}
	if cfg.MqttConfiguration.Port == 0 {
		cfg.MqttConfiguration.Port = defaultMqttPort
	}
	if cfg.SerialConfiguration.BaudRate == 0 {
		cfg.SerialConfiguration.BaudRate = defaultBaudRate
	}
	if cfg.DataDirectory == "" {
		cfg.DataDirectory = defaultDataDirectory
	}
	if cfg.Api.Address == "" {
		cfg.Api.Address = defaultApiAddress
	}
}

func (cs *configurationService) GetConfiguration() Configuration {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	return cs.configuration
}

// Update replaces the configuration and writes it back to the file it was loaded from.
func (cs *configurationService) Update(updatedConfig Configuration) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	buf, err := yaml.Marshal(updatedConfig)
	if err != nil {
		return err
	}

	if err := os.WriteFile(cs.filename, buf, 0644); err != nil {
		return fmt.Errorf("write configuration %v: %w", cs.filename, err)
	}

	cs.configuration = updatedConfig

	return nil
}

func (cs *configurationService) Filename() string {
	return cs.filename
}
