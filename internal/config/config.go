// Package config provides centralized configuration loading for synthpop using
// spf13/viper. All config access must go through this package.
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Exported configuration keys
const (
	LogLevelKey            = "log_level"
	PersonResolutionKey    = "person_resolution"
	HouseholdResolutionKey = "household_resolution"
	ProjectionKey          = "projection"
	StrictKey              = "strict"
	YearKey                = "year"
	DataDirKey             = "data_dir"
	ProfileKey             = "profile"
	RegionKey              = "region"
	RNGSeedKey             = "rng_seed"
)

// Resolutions accepted for person_resolution and household_resolution.
const (
	ResolutionMSOA11 = "MSOA11"
	ResolutionOA11   = "OA11"
)

// ProjectionPPP is the only supported population projection variant.
const ProjectionPPP = "ppp"

var (
	config     *viper.Viper
	configOnce sync.Once
	configPath string
	overrides  map[string]interface{}
	overridesM sync.Mutex
)

// ResetForTest resets the config singleton for test use only.
func ResetForTest() {
	config = nil
	configOnce = sync.Once{}
	configPath = ""
	overridesM.Lock()
	overrides = nil
	overridesM.Unlock()
}

// SetForTest overrides a single key for test use only. Takes effect on the
// next access, surviving a ResetForTest-free reload.
func SetForTest(key string, value interface{}) {
	overridesM.Lock()
	if overrides == nil {
		overrides = make(map[string]interface{})
	}
	overrides[key] = value
	overridesM.Unlock()
	if config != nil {
		config.Set(key, value)
	}
}

// SetConfigPath overrides the config file path before first use.
func SetConfigPath(path string) {
	configPath = path
}

// loadConfig initializes viper and loads config from file and env.
func loadConfig() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("json")
	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	v.AutomaticEnv()
	v.SetDefault(LogLevelKey, "INFO")
	v.SetDefault(ProjectionKey, ProjectionPPP)
	v.SetDefault(StrictKey, false)
	v.SetDefault(ProfileKey, false)
	v.SetDefault(RNGSeedKey, 0)
	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configPath, err)
		}
	}
	overridesM.Lock()
	for key, value := range overrides {
		v.Set(key, value)
	}
	overridesM.Unlock()
	return v, nil
}

// initConfig ensures config is loaded once.
func initConfig() error {
	var err error
	configOnce.Do(func() {
		var c *viper.Viper
		c, err = loadConfig()
		if err == nil {
			config = c
		}
	})
	if config == nil && err == nil {
		err = fmt.Errorf("config not initialized")
	}
	return err
}

// Load reads the configuration document at path. Must be called before any
// getter when a config file is in play.
func Load(path string) error {
	SetConfigPath(path)
	return initConfig()
}

// GetString returns a string config value.
func GetString(key string) string {
	_ = initConfig()
	if config == nil {
		return ""
	}
	return config.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	_ = initConfig()
	if config == nil {
		return 0
	}
	return config.GetInt(key)
}

// GetUint64 returns a uint64 config value.
func GetUint64(key string) uint64 {
	_ = initConfig()
	if config == nil {
		return 0
	}
	return config.GetUint64(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	_ = initConfig()
	if config == nil {
		return false
	}
	return config.GetBool(key)
}

// HasKey returns true if the config has the key.
func HasKey(key string) bool {
	_ = initConfig()
	if config == nil {
		return false
	}
	return config.IsSet(key)
}

func validResolution(r string) bool {
	return r == ResolutionMSOA11 || r == ResolutionOA11
}

// Validate checks for required/invalid config values.
func Validate() error {
	if err := initConfig(); err != nil {
		return err
	}

	if r := GetString(PersonResolutionKey); !validResolution(r) {
		return fmt.Errorf("%s must be %s or %s, got %q",
			PersonResolutionKey, ResolutionMSOA11, ResolutionOA11, r)
	}
	if r := GetString(HouseholdResolutionKey); !validResolution(r) {
		return fmt.Errorf("%s must be %s or %s, got %q",
			HouseholdResolutionKey, ResolutionMSOA11, ResolutionOA11, r)
	}
	if p := GetString(ProjectionKey); p != ProjectionPPP {
		return fmt.Errorf("%s must be %q, got %q", ProjectionKey, ProjectionPPP, p)
	}
	if y := GetInt(YearKey); y <= 0 {
		return fmt.Errorf("%s must be a positive year, got %d", YearKey, y)
	}
	if d := strings.TrimSpace(GetString(DataDirKey)); d == "" {
		return fmt.Errorf("%s must be set", DataDirKey)
	}
	return nil
}
