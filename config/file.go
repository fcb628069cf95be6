package config

import (
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"
)

// GetConfigPath returns the configuration file path
// Priority: 1. Specified config file, 2. $HOME/.kubepeek/config.yaml
func GetConfigPath(configFile string) string {
	if configFile != "" {
		return configFile
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(homeDir, ".kubepeek", "config.yaml")
}

// LoadConfig reads configFile over the defaults and then applies environment
// overrides. A missing file is not an error.
func LoadConfig(configFile string) (*Config, error) {
	config := DefaultConfig()

	configPath := GetConfigPath(configFile)
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.UnmarshalStrict(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
			}
		}
	}

	config.ApplyEnv()
	return config, nil
}

// Marshal renders config as YAML.
func Marshal(config *Config) ([]byte, error) {
	return yaml.Marshal(config)
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, configFile string) error {
	configPath := GetConfigPath(configFile)
	if configPath == "" {
		return fmt.Errorf("unable to determine config path")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile writes the defaults unless the file already
// exists. It returns the path it checked.
func CreateDefaultConfigFile(configFile string) (string, error) {
	configPath := GetConfigPath(configFile)
	if configPath == "" {
		return "", fmt.Errorf("unable to determine config path")
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}

	return configPath, SaveConfig(DefaultConfig(), configPath)
}
