package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Broker kinds the binaries can attach to.
const (
	BrokerMQTT   = "mqtt"
	BrokerRelay  = "relay"
	BrokerMemory = "memory"
)

type Config struct {
	Mode     string       `mapstructure:"mode"`
	HTTPPort int          `mapstructure:"http_port"`
	Broker   BrokerConfig `mapstructure:"broker"`
	Relay    RelayConfig  `mapstructure:"relay"`
	Game     GameConfig   `mapstructure:"game"`
}

type BrokerConfig struct {
	Kind string `mapstructure:"kind"`
	URL  string `mapstructure:"url"`
}

type RelayConfig struct {
	Port int `mapstructure:"port"`
}

// GameConfig carries the timing and gameplay knobs shared by every client
// of a room. Peers with diverging values still interoperate, they just
// publish at different rates.
type GameConfig struct {
	PublishPositionEvery time.Duration `mapstructure:"publish_position_every"`
	CheckGoalEvery       time.Duration `mapstructure:"check_goal_every"`
	KeepAliveEvery       time.Duration `mapstructure:"keep_alive_every"`
	AspectRatio          float64       `mapstructure:"aspect_ratio"`
	GoalReward           int           `mapstructure:"goal_reward"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("http_port", 8080)
	v.SetDefault("broker.kind", BrokerMQTT)
	v.SetDefault("broker.url", "tcp://localhost:1883")
	v.SetDefault("relay.port", 9000)
	v.SetDefault("game.publish_position_every", "50ms")
	v.SetDefault("game.check_goal_every", "50ms")
	v.SetDefault("game.keep_alive_every", "15s")
	v.SetDefault("game.aspect_ratio", 4.0/3.0)
	v.SetDefault("game.goal_reward", 50)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("config loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
