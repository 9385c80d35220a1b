package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppConfig struct {
	App struct {
		Name       string `mapstructure:"NAME"`
		Port       string `mapstructure:"PORT"`
		InstanceID string `mapstructure:"INSTANCE_ID"`
	}

	DATABASE struct {
		Postgres struct {
			DSN string `mapstructure:"URL"`
		}
		Redis struct {
			Addr     string `mapstructure:"ADDR"`
			Password string `mapstructure:"PASSWORD"`
		}
		Mongo struct {
			Url string `mapstructure:"URL"`
		}
	}

	CHAT struct {
		HistoryPageSize int `mapstructure:"HISTORY_PAGE_SIZE"`
		FanoutWorkers   int `mapstructure:"FANOUT_WORKERS"`
		MessageRate     int `mapstructure:"MESSAGE_RATE"`
		MessageBurst    int `mapstructure:"MESSAGE_BURST"`
	}
}

var Conf *AppConfig

func LoadConfig() error {
	viper.SetConfigName("application")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("KGBHUB")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("CHAT.HISTORY_PAGE_SIZE", 12)
	viper.SetDefault("CHAT.FANOUT_WORKERS", 5)
	viper.SetDefault("CHAT.MESSAGE_RATE", 10)
	viper.SetDefault("CHAT.MESSAGE_BURST", 20)

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	var config AppConfig
	if err := viper.Unmarshal(&config); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}

	Conf = &config
	log.Info().Msg("configuration loaded...")
	return nil
}
