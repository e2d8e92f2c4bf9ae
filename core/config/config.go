package config

import (
	"reflect"
	"strings"

	"tmsops/core/database"
	"tmsops/core/logger"
	"tmsops/core/sandbox"
	"tmsops/core/storage"
	"tmsops/core/tms"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the toolkit.
// It is divided into partial configurations for better modularity.
type Config struct {
	// API holds configuration for the TMS API client.
	API tms.Config `mapstructure:"api"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the optional run-history database.
	Database database.Config `mapstructure:"database"`
	// Storage holds configuration for the object-storage input source.
	Storage storage.Config `mapstructure:"storage"`
	// Sandbox holds configuration for the local sandbox API server.
	Sandbox sandbox.Config `mapstructure:"sandbox"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// Load .env file if it exists; absence is fine in production.
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. API_TOKEN -> api.token)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
