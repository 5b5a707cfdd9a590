// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	// LoadConfig works on the global viper instance; start each test clean.
	viper.Reset()
	AppConfig = Config{}
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644)
	require.NoError(t, err)
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, "")

	require.NoError(t, LoadConfig(dir))

	assert.Equal(t, 8000, AppConfig.Server.Port)
	assert.Equal(t, "192.168.1.100", AppConfig.Halo.Host)
	assert.True(t, AppConfig.Halo.UseHTTPS)
	assert.Equal(t, "http://influxdb:8086", AppConfig.InfluxDB.URL)
	assert.Equal(t, "halo-sensors", AppConfig.InfluxDB.Bucket)
	assert.Len(t, AppConfig.Predictive.Rules, 5)
}

func TestLoadConfigFileOverrides(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: 9001
halo:
  host: 10.0.0.5
  device_id: halo-lab-3
  use_https: false
influxdb:
  url: http://localhost:8086
  token: test-token
auth:
  jwt_secret: s3cret
  api_keys:
    - collector-key
  users:
    - username: admin
      password_hash: "$2a$14$notarealhash"
      role: admin
collector:
  interval: 30s
`)

	require.NoError(t, LoadConfig(dir))

	assert.Equal(t, 9001, AppConfig.Server.Port)
	assert.Equal(t, "10.0.0.5", AppConfig.Halo.Host)
	assert.Equal(t, "halo-lab-3", AppConfig.Halo.DeviceID)
	assert.False(t, AppConfig.Halo.UseHTTPS)
	assert.Equal(t, "test-token", AppConfig.InfluxDB.Token)
	assert.Equal(t, "s3cret", AppConfig.Auth.JWTSecret)
	require.Len(t, AppConfig.Auth.Users, 1)
	assert.Equal(t, "admin", AppConfig.Auth.Users[0].Role)
	assert.Equal(t, "30s", AppConfig.Collector.Interval.String())
}

func TestLoadConfigRuleOverride(t *testing.T) {
	dir := writeConfig(t, `
predictive:
  rules:
    - id: custom-co2
      name: Custom CO2 rule
      type: threshold
      sensor_id: co2sensor/co2
      enabled: true
      config:
        high_threshold: 1200
`)

	require.NoError(t, LoadConfig(dir))

	require.Len(t, AppConfig.Predictive.Rules, 1)
	rule := AppConfig.Predictive.Rules[0]
	assert.Equal(t, "custom-co2", rule.ID)
	assert.Equal(t, float64(1200), rule.Config.HighThreshold)
}
