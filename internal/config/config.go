package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel   zapcore.Level
	NatureRemo NatureRemoConfig `mapstructure:"nature_remo"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Port       uint             `mapstructure:"port"`
	HttpLog    bool             `mapstructure:"http_log"`
}

type NatureRemoConfig struct {
	Token                string
	BaseURL              string   `mapstructure:"base_url"`
	DeviceIds            []string `mapstructure:"device_ids"`
	PollIntervalSeconds  uint32   `mapstructure:"poll_interval_seconds"`
	RequestTimeoutMillis uint32   `mapstructure:"request_timeout_millis"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	ClientId          string `mapstructure:"client_id"`
	Qos               byte   `mapstructure:"qos"`
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

const (
	MIN_POLL_INTERVAL_SECONDS = 60
	MAX_POLL_INTERVAL_SECONDS = 120
)

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// CheckMQTT normalizes both topic prefixes and validates the QoS level.
func CheckMQTT(cfg *MQTTConfig) error {
	baseTopic, err := CheckMQTTTopic(cfg.BaseTopic)
	if err != nil {
		return errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.BaseTopic = baseTopic

	hadTopic, err := CheckMQTTTopic(cfg.HADiscoveryTopic)
	if err != nil {
		return errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.HADiscoveryTopic = hadTopic

	if cfg.Qos > 2 {
		return errors.New("config param mqtt.qos should be 0, 1 or 2")
	}
	return nil
}

// CheckNatureRemo validates the cloud section and drops blank device ids.
func CheckNatureRemo(cfg *NatureRemoConfig) error {
	if strings.TrimSpace(cfg.Token) == "" {
		return errors.New("config param nature_remo.token is required")
	}
	if cfg.PollIntervalSeconds < MIN_POLL_INTERVAL_SECONDS || cfg.PollIntervalSeconds > MAX_POLL_INTERVAL_SECONDS {
		return errors.New("config param nature_remo.poll_interval_seconds should be between 60 and 120")
	}
	if cfg.RequestTimeoutMillis < 1000 {
		return errors.New("config param nature_remo.request_timeout_millis should be >= 1000")
	}
	var ids []string
	for _, id := range cfg.DeviceIds {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	cfg.DeviceIds = ids
	return nil
}
