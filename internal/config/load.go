package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	ENV_PREFIX          = "natureremo"
	ENV_CONFIG_FILE     = "CONFIG_FILE"
	DEFAULT_BASE_TOPIC  = "natureremo"
	DEFAULT_HA_TOPIC    = "homeassistant"
	DEFAULT_HTTP_PORT   = 8080
	DEFAULT_MQTT_PORT   = 1883
	DEFAULT_TIMEOUT_MS  = 10000
	DEFAULT_POLL_SECOND = 60
)

// Load reads the configuration from the environment (NATUREREMO_ prefix) and,
// when CONFIG_FILE points to an existing file, from that file.
func Load() (*Config, error) {
	v := viper.New()

	// alias PORT => NATUREREMO_PORT
	if port := os.Getenv("PORT"); port != "" && os.Getenv("NATUREREMO_PORT") == "" {
		os.Setenv("NATUREREMO_PORT", port)
	}

	setDefaults(v)

	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile := os.Getenv(ENV_CONFIG_FILE); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.LogLevel = ParseLogLevel(v.GetString("log_level"))

	if err := CheckMQTT(&cfg.MQTT); err != nil {
		return nil, err
	}
	if err := CheckNatureRemo(&cfg.NatureRemo); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseLogLevel maps a config level name to zap. trace is an alias of debug
// and unknown names fall back to info.
func ParseLogLevel(level string) zapcore.Level {
	if strings.EqualFold(level, "trace") {
		return zapcore.DebugLevel
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// Redacted returns a copy of the config safe to print.
func (c Config) Redacted() Config {
	c.NatureRemo.Token = "*redacted*"
	c.MQTT.Username = "*redacted*"
	c.MQTT.Password = "*redacted*"
	return c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "warn")
	v.SetDefault("nature_remo.token", "")
	v.SetDefault("nature_remo.base_url", natureremo.BASE_URL)
	v.SetDefault("nature_remo.device_ids", []string{})
	v.SetDefault("nature_remo.poll_interval_seconds", DEFAULT_POLL_SECOND)
	v.SetDefault("nature_remo.request_timeout_millis", DEFAULT_TIMEOUT_MS)
	v.SetDefault("mqtt.host", "localhost")
	v.SetDefault("mqtt.port", DEFAULT_MQTT_PORT)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.ha_discovery_enable", false)
	v.SetDefault("mqtt.base_topic", DEFAULT_BASE_TOPIC)
	v.SetDefault("mqtt.ha_discovery_topic", DEFAULT_HA_TOPIC)
	v.SetDefault("port", DEFAULT_HTTP_PORT)
	v.SetDefault("http_log", false)
}
