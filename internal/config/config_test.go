package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestCheckMQTTTopic(t *testing.T) {

	assert := assert.New(t)

	topic, err := CheckMQTTTopic("NatureRemo_1")
	assert.NoError(err)
	assert.Equal("natureremo_1", topic)

	_, err = CheckMQTTTopic("nature/remo")
	assert.Error(err)

	_, err = CheckMQTTTopic("")
	assert.Error(err)
}

func TestCheckNatureRemo(t *testing.T) {

	assert := assert.New(t)

	cfg := NatureRemoConfig{
		Token:                "token",
		DeviceIds:            []string{" dev-1 ", "", "dev-2"},
		PollIntervalSeconds:  60,
		RequestTimeoutMillis: 10000,
	}
	assert.NoError(CheckNatureRemo(&cfg))
	assert.Equal([]string{"dev-1", "dev-2"}, cfg.DeviceIds)

	noToken := cfg
	noToken.Token = " "
	assert.Error(CheckNatureRemo(&noToken))

	tooFast := cfg
	tooFast.PollIntervalSeconds = 30
	assert.Error(CheckNatureRemo(&tooFast))

	tooSlow := cfg
	tooSlow.PollIntervalSeconds = 121
	assert.Error(CheckNatureRemo(&tooSlow))

	shortTimeout := cfg
	shortTimeout.RequestTimeoutMillis = 10
	assert.Error(CheckNatureRemo(&shortTimeout))
}

func TestCheckMQTT(t *testing.T) {

	assert := assert.New(t)

	cfg := MQTTConfig{BaseTopic: "Remo", HADiscoveryTopic: "HomeAssistant", Qos: 1}
	assert.NoError(CheckMQTT(&cfg))
	assert.Equal("remo", cfg.BaseTopic)
	assert.Equal("homeassistant", cfg.HADiscoveryTopic)

	badQos := cfg
	badQos.Qos = 3
	assert.Error(CheckMQTT(&badQos))

	badTopic := cfg
	badTopic.HADiscoveryTopic = "home/assistant"
	assert.Error(CheckMQTT(&badTopic))
}

func TestParseLogLevel(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(zapcore.DebugLevel, ParseLogLevel("trace"))
	assert.Equal(zapcore.WarnLevel, ParseLogLevel("warn"))
	assert.Equal(zapcore.ErrorLevel, ParseLogLevel("error"))
	assert.Equal(zapcore.InfoLevel, ParseLogLevel("verbose"))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(ENV_CONFIG_FILE, "")
	t.Setenv("NATUREREMO_PORT", "")
	t.Setenv("PORT", "9090")
	t.Setenv("NATUREREMO_NATURE_REMO_TOKEN", "secret")
	t.Setenv("NATUREREMO_NATURE_REMO_DEVICE_IDS", "dev-1,dev-2")
	t.Setenv("NATUREREMO_MQTT_BASE_TOPIC", "Remo")
	t.Setenv("NATUREREMO_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.NatureRemo.Token)
	assert.Equal(t, []string{"dev-1", "dev-2"}, cfg.NatureRemo.DeviceIds)
	assert.Equal(t, uint32(60), cfg.NatureRemo.PollIntervalSeconds)
	assert.Equal(t, "remo", cfg.MQTT.BaseTopic)
	assert.Equal(t, "homeassistant", cfg.MQTT.HADiscoveryTopic)
	assert.Equal(t, byte(1), cfg.MQTT.Qos)
	assert.Equal(t, uint(9090), cfg.Port)
	assert.Equal(t, zapcore.DebugLevel, cfg.LogLevel)

	redacted := cfg.Redacted()
	assert.Equal(t, "*redacted*", redacted.NatureRemo.Token)
	assert.Equal(t, "secret", cfg.NatureRemo.Token)
}

func TestLoadFromFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
nature_remo:
  token: file-token
  poll_interval_seconds: 90
mqtt:
  host: broker
  ha_discovery_enable: true
`), 0o600))
	t.Setenv(ENV_CONFIG_FILE, file)
	t.Setenv("PORT", "")
	t.Setenv("NATUREREMO_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.NatureRemo.Token)
	assert.Equal(t, uint32(90), cfg.NatureRemo.PollIntervalSeconds)
	assert.Equal(t, "broker", cfg.MQTT.Host)
	assert.True(t, cfg.MQTT.HADiscoveryEnable)
}

func TestLoadRejectsMissingToken(t *testing.T) {
	t.Setenv(ENV_CONFIG_FILE, "")
	t.Setenv("NATUREREMO_NATURE_REMO_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}
