package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel string `yaml:"log-level" env-default:"info"`
	HTTPPort string `yaml:"http-port" env-default:"9090"`
	Relay    Relay  `yaml:"relay"`
	Redis    Redis  `yaml:"redis"`
}

type Relay struct {
	RoomTTLSeconds int `yaml:"room-ttl-seconds" env-default:"300"`
}

// Redis backs the relay's room registry. With Enabled false the relay keeps
// reservations in memory, which is fine for a single instance.
type Redis struct {
	Enabled bool   `yaml:"enabled" env-default:"false"`
	Host    string `yaml:"host" env-default:"localhost"`
	Port    string `yaml:"port" env-default:"6379"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Relay) RoomTTL() time.Duration {
	return time.Duration(that.RoomTTLSeconds) * time.Second
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
