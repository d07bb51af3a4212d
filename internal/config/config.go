package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppHost string        `mapstructure:"host"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Index   IndexConfig   `mapstructure:"index"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Storage StorageConfig `mapstructure:"storage"`
	Locks   LocksConfig   `mapstructure:"locks"`
}

type HTTPConfig struct {
	Addr          string   `mapstructure:"addr"`
	CORSOrigins   []string `mapstructure:"cors_origins"`
	MaxUploadSize int64    `mapstructure:"max_upload_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DBConfig struct {
	Source string `mapstructure:"source"`
}

// IndexConfig selects where node metadata lives: "memory" or "postgres".
type IndexConfig struct {
	Driver string `mapstructure:"driver"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// StorageConfig selects the physical backend: "local" or "s3".
type StorageConfig struct {
	Driver string   `mapstructure:"driver"`
	Path   string   `mapstructure:"path"`
	S3     S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// LocksConfig selects tree lock sharing: "local", "redis" or "postgres".
type LocksConfig struct {
	Driver        string        `mapstructure:"driver"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	TTL           time.Duration `mapstructure:"ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "localhost")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.max_upload_size", int64(1<<30))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("index.driver", "memory")
	v.SetDefault("jwt.ttl", time.Hour)
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("locks.driver", "local")
	v.SetDefault("locks.ttl", 30*time.Second)
}

// Load reads configs/settings.yml (or the file at path when set) and
// environment overrides such as DB_SOURCE or STORAGE_DRIVER.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./configs")
		v.AddConfigPath("/configs")
		v.SetConfigName("settings")
		v.SetConfigType("yml")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	drivers := []struct {
		key     string
		value   string
		allowed []string
	}{
		{"index.driver", c.Index.Driver, []string{"memory", "postgres"}},
		{"storage.driver", c.Storage.Driver, []string{"local", "s3"}},
		{"locks.driver", c.Locks.Driver, []string{"local", "redis", "postgres"}},
	}
	for _, d := range drivers {
		if !slices.Contains(d.allowed, d.value) {
			return fmt.Errorf("config: unknown %s %q (want one of %s)", d.key, d.value, strings.Join(d.allowed, ", "))
		}
	}
	return nil
}
