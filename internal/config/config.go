// internal/config/config.go
package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/retea-se/halo-3c-dashboard/internal/predictive"
)

type Config struct {
	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`

	Halo struct {
		Host     string        `mapstructure:"host"`
		Username string        `mapstructure:"username"`
		Password string        `mapstructure:"password"`
		UseHTTPS bool          `mapstructure:"use_https"`
		Timeout  time.Duration `mapstructure:"timeout"`
		DeviceID string        `mapstructure:"device_id"`
		Location string        `mapstructure:"location"`
	} `mapstructure:"halo"`

	InfluxDB struct {
		URL    string `mapstructure:"url"`
		Token  string `mapstructure:"token"`
		Org    string `mapstructure:"org"`
		Bucket string `mapstructure:"bucket"`
	} `mapstructure:"influxdb"`

	Auth struct {
		JWTSecret   string        `mapstructure:"jwt_secret"`
		TokenExpiry time.Duration `mapstructure:"token_expiry"`
		Users       []User        `mapstructure:"users"`
		APIKeys     []string      `mapstructure:"api_keys"`
	} `mapstructure:"auth"`

	Collector struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"collector"`

	Predictive struct {
		Rules []predictive.Rule `mapstructure:"rules"`
	} `mapstructure:"predictive"`
}

// User is one configured dashboard login. Password is a bcrypt hash.
type User struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
	Role         string `mapstructure:"role"`
}

var AppConfig Config

// LoadConfig reads config.yaml from the given path, with HALO_-prefixed
// environment variables overriding file values.
func LoadConfig(path string) error {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.SetEnvPrefix("HALO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Error reading config file: %s\n", err)
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Printf("Unable to decode config into struct: %v", err)
		return err
	}

	// Config may disable or retune individual rules; absent section keeps
	// the built-in set.
	if len(AppConfig.Predictive.Rules) == 0 {
		AppConfig.Predictive.Rules = predictive.DefaultRules()
	}

	log.Printf("Configuration loaded (device: %s, influxdb: %s)",
		AppConfig.Halo.DeviceID, AppConfig.InfluxDB.URL)
	return nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("halo.host", "192.168.1.100")
	viper.SetDefault("halo.username", "admin")
	viper.SetDefault("halo.use_https", true)
	viper.SetDefault("halo.timeout", "10s")
	viper.SetDefault("halo.device_id", "halo-device-1")
	viper.SetDefault("influxdb.url", "http://influxdb:8086")
	viper.SetDefault("influxdb.org", "halo-org")
	viper.SetDefault("influxdb.bucket", "halo-sensors")
	viper.SetDefault("auth.token_expiry", "24h")
	viper.SetDefault("collector.interval", "10s")
}
