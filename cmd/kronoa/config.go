package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// config holds the "Recognised configuration" spec §6 names: a
// storage URL/root and the two admin-lease durations. Bound through
// viper so a value may come from flag, env (KRONOA_*), or a
// kronoa.yaml file in the current directory, in that order of
// precedence, the same layering cmd/warren/main.go uses for
// log-level/log-json.
type config struct {
	Root        string        `mapstructure:"root"`
	Backend     string        `mapstructure:"backend"`
	LockWait    time.Duration `mapstructure:"lock-wait"`
	LeaseLength time.Duration `mapstructure:"lease-length"`

	S3Bucket    string `mapstructure:"s3-bucket"`
	S3Endpoint  string `mapstructure:"s3-endpoint"`
	S3AccessKey string `mapstructure:"s3-access-key"`
	S3SecretKey string `mapstructure:"s3-secret-key"`
}

func loadConfig(v *viper.Viper) (*config, error) {
	v.SetDefault("root", "./kronoa-data")
	v.SetDefault("backend", "local")
	v.SetDefault("lock-wait", 30*time.Second)
	v.SetDefault("lease-length", 60*time.Second)

	v.SetConfigName("kronoa")
	v.AddConfigPath(".")
	v.SetEnvPrefix("KRONOA")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
