package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configFileName = "formbind"
	configFileType = "yaml"
	envPrefix      = "FORMBIND"

	cfgKeyBaseURL   = "api.base_url"
	cfgKeyTimeout   = "api.timeout"
	cfgKeyRateLimit = "api.rate_limit"
	cfgKeyBurst     = "api.burst"
	cfgKeyHeaders   = "api.headers"
	cfgKeyFormsDir  = "forms.dir"
	cfgKeyParams    = "params"
	cfgKeyLogLevel  = "log.level"
	cfgKeyLogFormat = "log.format"
	cfgKeyAddr      = "serve.addr"
	cfgKeyMetrics   = "serve.metrics"
)

// loadConfig reads formbind.yaml from path, or from the working directory and
// the user config directory when path is empty. A missing file is not an
// error unless it was named explicitly.
func loadConfig(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyTimeout, 10*time.Second)
	v.SetDefault(cfgKeyRateLimit, 0.0)
	v.SetDefault(cfgKeyBurst, 1)
	v.SetDefault(cfgKeyFormsDir, "forms")
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetDefault(cfgKeyLogFormat, "text")
	v.SetDefault(cfgKeyAddr, ":8080")
	v.SetDefault(cfgKeyMetrics, true)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "formbind"))
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}
