package util

import (
	"github.com/berfenger/natureremo2mqtt/internal/config"
	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		NatureRemo: config.NatureRemoConfig{
			Token:                "test-token",
			BaseURL:              natureremo.BASE_URL,
			PollIntervalSeconds:  60,
			RequestTimeoutMillis: 2000,
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "natureremo",
			HADiscoveryTopic: "homeassistant",
		},
		Port: 8080,
	}
}
