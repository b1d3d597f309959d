package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:              "development",
		JWTSecret:        "secure-secret-at-least-32-chars-long",
		DBPassword:       "secure-password",
		DBSSLMode:        "disable",
		Port:             "8000",
		FeedDefaultLimit: 20,
		FeedMaxLimit:     100,
		EventsBackend:    EventsBackendRedis,
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateFeedLimits(t *testing.T) {
	c := validConfig()
	c.FeedDefaultLimit = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.FeedMaxLimit = 10
	assert.Error(t, c.Validate())
}

func TestConfig_ValidateEventsBackend(t *testing.T) {
	c := validConfig()
	c.EventsBackend = "carrier-pigeon"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.EventsBackend = EventsBackendKafka
	c.KafkaBrokers = " , "
	c.KafkaTopic = "questions"
	assert.Error(t, c.Validate())

	c.KafkaBrokers = "kafka-1:9092, kafka-2:9092"
	require.NoError(t, c.Validate())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, c.Brokers())
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("EVENTS_BACKEND")
	defer viper.Reset()

	os.Setenv("APP_ENV", "test")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("EVENTS_BACKEND", " None ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, EventsBackendNone, c.EventsBackend)
	assert.Equal(t, 20, c.FeedDefaultLimit)
	assert.Equal(t, 100, c.FeedMaxLimit)
}
