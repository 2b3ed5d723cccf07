package configs

import (
	"errors"
	"os"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
)

const DefaultConfigFile = "~/.chatcrypt.toml"

type MainConfig struct {
	Debug bool `toml:"debug"`
}

type CryptConfig struct {
	// cipher[-size]-mode[-padding], e.g. rc6-256-cbc-pkcs7
	Engine string `toml:"engine"`
	// Hex encoded key material
	Key string `toml:"key"`
}

type DHConfig struct {
	Group string `toml:"group"`
}

type LogConfig struct {
	Main     string `toml:"main"`
	Crypt    string `toml:"crypt"`
	Ciphers  string `toml:"ciphers"`
	Modes    string `toml:"modes"`
	Padding  string `toml:"padding"`
	DH       string `toml:"dh"`
	Protocol string `toml:"protocol"`
	File     string `toml:"file"`
	NoColor  bool   `toml:"no_color"`
}

type ConfigFile struct {
	Main  *MainConfig  `toml:"main"`
	Crypt *CryptConfig `toml:"crypt"`
	DH    *DHConfig    `toml:"dh"`
	Log   *LogConfig   `toml:"log"`
}

var (
	configFile *ConfigFile
	configLock sync.Mutex
)

func defaultConfigFile() *ConfigFile {
	return &ConfigFile{
		Main: &MainConfig{},
		Crypt: &CryptConfig{
			Engine: "rc6-256-cbc-pkcs7",
		},
		DH: &DHConfig{
			Group: "modp2048",
		},
		Log: &LogConfig{
			Main:     "Info",
			Crypt:    "Info",
			Ciphers:  "Info",
			Modes:    "Info",
			Padding:  "Info",
			DH:       "Info",
			Protocol: "Info",
		},
	}
}

// GetConfigFile returns the process-wide configuration, creating defaults on first use.
func GetConfigFile() *ConfigFile {
	configLock.Lock()
	defer configLock.Unlock()
	if configFile == nil {
		configFile = defaultConfigFile()
	}
	return configFile
}

// LoadConfigFile decodes a TOML file over the current configuration.
// Tables missing from the file keep their previous values.
func LoadConfigFile(path string) (*ConfigFile, error) {
	if path == "" {
		return nil, errors.New("empty config file path")
	}
	file, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(file); err != nil {
		return nil, err
	}

	cfg := GetConfigFile()
	configLock.Lock()
	defer configLock.Unlock()
	if _, err := toml.DecodeFile(file, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResetConfigFile drops the loaded configuration and every cached logger.
func ResetConfigFile() {
	configLock.Lock()
	configFile = nil
	configLock.Unlock()
	resetLoggers()
}
