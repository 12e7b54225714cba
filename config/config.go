// config loads application settings from a yaml file in the kind/def envelope:
//
//	kind: pickpath
//	def:
//	  server:
//	    addr: ":8080"
//	  playback:
//	    tickInterval: 100ms
//	    haltOnDone: true
//	  feed:
//	    url: ws://127.0.0.1:8765
//	    authToken: secret_token
//	    reconnect: 2s
//	  orders:
//	    capacity: 1000
//	  grid:
//	    path: layout.txt
//	    watch: true
//	  log:
//	    level: info
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"pickpath/animation"
	"pickpath/orders"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// Config is the application configuration. Durations are kept as strings, as written in
// the file, and parsed by the accessors. Viper lowercases keys, hence the lowercase tags;
// the file itself may use any case.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Playback PlaybackConfig `yaml:"playback"`
	Feed     FeedConfig     `yaml:"feed"`
	Orders   OrdersConfig   `yaml:"orders"`
	Grid     GridConfig     `yaml:"grid"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type PlaybackConfig struct {
	TickInterval string `yaml:"tickinterval"`
	HaltOnDone   *bool  `yaml:"haltondone"`
}

type FeedConfig struct {
	// URL of the order server's websocket. Empty disables the feed.
	URL       string `yaml:"url"`
	AuthToken string `yaml:"authtoken"`
	Reconnect string `yaml:"reconnect"`
}

type OrdersConfig struct {
	// Orders kept for listing; the oldest are dropped beyond it. Zero keeps every order.
	Capacity int `yaml:"capacity"`
}

type GridConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	halt := true
	return &Config{
		Server:   ServerConfig{Addr: ":8080"},
		Playback: PlaybackConfig{TickInterval: "100ms", HaltOnDone: &halt},
		Feed:     FeedConfig{AuthToken: "secret_token", Reconnect: "2s"},
		Orders:   OrdersConfig{Capacity: orders.DefaultCapacity},
		Log:      LogConfig{Level: "info"},
	}
}

// FromYaml reads the config file at path over the defaults. Fields the file leaves out keep
// their default values.
func FromYaml(path string) (*Config, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	innerConfig := Default()
	if err = yaml.Unmarshal(spec, innerConfig); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err = innerConfig.Validate(); err != nil {
		return nil, err
	}
	return innerConfig, nil
}

// Load reads path if it names an existing file, and otherwise returns the defaults. An
// explicitly required file that is missing is an error.
func Load(path string, required bool) (*Config, error) {
	cfg, err := FromYaml(path)
	if err == nil {
		return cfg, nil
	}

	var notFound viper.ConfigFileNotFoundError
	if !required && (errors.As(err, &notFound) || isMissingFile(err)) {
		return Default(), nil
	}
	return nil, err
}

// ErrInvalidDuration is returned for a duration field that does not parse or is not positive.
var ErrInvalidDuration = errors.New("invalid duration")

func (cfg *Config) Validate() error {
	if _, err := cfg.TickInterval(); err != nil {
		return err
	}
	if _, err := cfg.ReconnectDelay(); err != nil {
		return err
	}
	return nil
}

func (cfg *Config) TickInterval() (time.Duration, error) {
	return parsePositive("playback.tickInterval", cfg.Playback.TickInterval, animation.DefaultTickInterval)
}

func (cfg *Config) ReconnectDelay() (time.Duration, error) {
	return parsePositive("feed.reconnect", cfg.Feed.Reconnect, 2*time.Second)
}

// Animation returns the playback config.
func (cfg *Config) Animation() animation.Config {
	pc := animation.DefaultConfig()
	if d, err := cfg.TickInterval(); err == nil {
		pc.TickInterval = d
	}
	if cfg.Playback.HaltOnDone != nil {
		pc.HaltOnDone = *cfg.Playback.HaltOnDone
	}
	return pc
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parsePositive(key, val string, defaultVal time.Duration) (time.Duration, error) {
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidDuration, key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidDuration, key, val)
	}
	return d, nil
}
