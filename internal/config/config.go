// Package config loads settings from configs/config.yml, an optional .env
// file and GROW_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"grow_controller/internal/transport"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "grow"

// State backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Keys shared with command line flags.
const (
	KeyPort     = "port"
	KeyLogLevel = "log.level"
	KeyConfig   = "config"
)

var (
	ErrUnknownBackend = errors.New("unknown state backend")
	ErrNoSigningKey   = errors.New("auth.signing_key must be set")
)

type Config struct {
	Port     string
	LogLevel string

	DBPath        string
	StateBackend  string
	StateFilePath string

	SigningKey string
	TokenTTL   time.Duration

	Serial transport.Config
	Fusion Fusion
	MQTT   transport.MQTTConfig

	JournalQueue int
}

// Fusion names the endpoints feeding each heatmap half.
type Fusion struct {
	Left  string
	Right string
}

// MQTTEnabled reports whether a broker was configured.
func (c Config) MQTTEnabled() bool { return c.MQTT.Broker != "" }

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyLogLevel, "info")

	v.SetDefault("db.path", "grow.db")
	v.SetDefault("state.backend", BackendSQLite)
	v.SetDefault("state.file", "state.json")

	v.SetDefault("auth.token_ttl", time.Hour)

	v.SetDefault("serial.poll_interval", transport.DefaultPollInterval)
	v.SetDefault("serial.endpoints", transport.DefaultEndpoints())
	v.SetDefault("serial.coordinator", transport.DefaultCoordinator())

	v.SetDefault("fusion.left", "esp1")
	v.SetDefault("fusion.right", "esp2")

	v.SetDefault("mqtt.client_id", "grow-controller")
	v.SetDefault("mqtt.topic_prefix", "grow/actuators")
	v.SetDefault("mqtt.connect_timeout", 10*time.Second)

	v.SetDefault("journal.queue", 256)
}

// Bind wires .env loading and the GROW_ environment onto v. A missing .env
// is not an error.
func Bind(v *viper.Viper) {
	_ = godotenv.Load()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load reads file (or configs/config.yml when empty) into v and decodes it.
// A missing default file is tolerated; a missing explicit file is not.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:          v.GetString(KeyPort),
		LogLevel:      strings.ToLower(v.GetString(KeyLogLevel)),
		DBPath:        v.GetString("db.path"),
		StateBackend:  strings.ToLower(v.GetString("state.backend")),
		StateFilePath: v.GetString("state.file"),
		SigningKey:    v.GetString("auth.signing_key"),
		TokenTTL:      v.GetDuration("auth.token_ttl"),
		Fusion: Fusion{
			Left:  v.GetString("fusion.left"),
			Right: v.GetString("fusion.right"),
		},
		MQTT: transport.MQTTConfig{
			Broker:         v.GetString("mqtt.broker"),
			ClientID:       v.GetString("mqtt.client_id"),
			Username:       v.GetString("mqtt.username"),
			Password:       v.GetString("mqtt.password"),
			TopicPrefix:    v.GetString("mqtt.topic_prefix"),
			ConnectTimeout: v.GetDuration("mqtt.connect_timeout"),
		},
		JournalQueue: v.GetInt("journal.queue"),
	}

	cfg.Serial.PollInterval = v.GetDuration("serial.poll_interval")
	if err := v.UnmarshalKey("serial.endpoints", &cfg.Serial.Endpoints); err != nil {
		return Config{}, fmt.Errorf("decode serial.endpoints: %w", err)
	}
	if err := v.UnmarshalKey("serial.coordinator", &cfg.Serial.Coordinator); err != nil {
		return Config{}, fmt.Errorf("decode serial.coordinator: %w", err)
	}

	switch cfg.StateBackend {
	case BackendSQLite, BackendFile:
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.StateBackend)
	}
	if strings.TrimSpace(cfg.SigningKey) == "" {
		return Config{}, ErrNoSigningKey
	}
	return cfg, nil
}
