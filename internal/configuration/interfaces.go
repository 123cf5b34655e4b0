package configuration

// ConfigurationService hands out copies of the configuration. Update writes
// the changed copy back to Filename.
type ConfigurationService interface {
	GetConfiguration() Configuration
	Update(updatedConfig Configuration) error
	Filename() string
}
