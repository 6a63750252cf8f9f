package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

// AudioConfig covers the per-session windowing parameters. Window length in
// samples is SampleRate * WindowSeconds.
type AudioConfig struct {
	SampleRate       int     `yaml:"sample_rate"`
	Channels         int     `yaml:"channels"`
	BitDepth         int     `yaml:"bit_depth"`
	WindowSeconds    float64 `yaml:"window_seconds"`
	OverlapFraction  float64 `yaml:"overlap_fraction"`
	MaxBufferSeconds float64 `yaml:"max_buffer_seconds"`
}

// ASRConfig selects and orders the transcription engines. The mock engine is
// always appended as the terminal fallback if the list does not include it.
type ASRConfig struct {
	Engines             []string `yaml:"engines"`
	Language            string   `yaml:"language"`
	ConfidenceThreshold float64  `yaml:"confidence_threshold"`
	MaxProcessingMS     int      `yaml:"max_processing_time_ms"`
	WhisperCommand      string   `yaml:"whisper_command"`
	WhisperModelPath    string   `yaml:"whisper_model_path"`
}

type TermsConfig struct {
	Persist   bool   `yaml:"persist"`
	StorePath string `yaml:"store_path"`
}

type ConnectionConfig struct {
	MaxConnections  int `yaml:"max_connections"`
	IdleTimeoutS    int `yaml:"idle_timeout_s"`
	SweepIntervalS  int `yaml:"sweep_interval_s"`
	HeartbeatS      int `yaml:"heartbeat_interval_s"`
	MaxMessageBytes int `yaml:"max_message_bytes"`
}

type Config struct {
	RuntimeName string           `yaml:"runtime_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Bus         BusConfig        `yaml:"bus"`
	Audio       AudioConfig      `yaml:"audio"`
	ASR         ASRConfig        `yaml:"asr"`
	Terms       TermsConfig      `yaml:"terms"`
	Connection  ConnectionConfig `yaml:"connection"`
}

func Default() Config {
	return Config{
		RuntimeName: "insight-core",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8000,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Audio: AudioConfig{
			SampleRate:       16000,
			Channels:         1,
			BitDepth:         16,
			WindowSeconds:    2.0,
			OverlapFraction:  0.25,
			MaxBufferSeconds: 10.0,
		},
		ASR: ASRConfig{
			Engines:             []string{"mock"},
			Language:            "en-US",
			ConfidenceThreshold: 0.5,
			MaxProcessingMS:     5000,
		},
		Terms: TermsConfig{
			Persist:   false,
			StorePath: "./data/insight-terms.db",
		},
		Connection: ConnectionConfig{
			MaxConnections:  100,
			IdleTimeoutS:    300,
			SweepIntervalS:  60,
			HeartbeatS:      30,
			MaxMessageBytes: 1 << 20,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "SEINSIGHT_RUNTIME_NAME")
	overrideString(&cfg.Environment, "SEINSIGHT_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "SEINSIGHT_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "SEINSIGHT_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "SEINSIGHT_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "SEINSIGHT_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "SEINSIGHT_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Bus.Enabled, "SEINSIGHT_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "SEINSIGHT_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "SEINSIGHT_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "SEINSIGHT_BUS_SERVERS")
	overrideInt(&cfg.Bus.ConnectTimeout, "SEINSIGHT_BUS_CONNECT_TIMEOUT_MS")
	overrideInt(&cfg.Audio.SampleRate, "SEINSIGHT_AUDIO_SAMPLE_RATE")
	overrideInt(&cfg.Audio.Channels, "SEINSIGHT_AUDIO_CHANNELS")
	overrideFloat(&cfg.Audio.WindowSeconds, "SEINSIGHT_AUDIO_WINDOW_SECONDS")
	overrideFloat(&cfg.Audio.OverlapFraction, "SEINSIGHT_AUDIO_OVERLAP_FRACTION")
	overrideFloat(&cfg.Audio.MaxBufferSeconds, "SEINSIGHT_AUDIO_MAX_BUFFER_SECONDS")
	overrideStringSlice(&cfg.ASR.Engines, "SEINSIGHT_ASR_ENGINES")
	overrideString(&cfg.ASR.Language, "SEINSIGHT_ASR_LANGUAGE")
	overrideFloat(&cfg.ASR.ConfidenceThreshold, "SEINSIGHT_ASR_CONFIDENCE_THRESHOLD")
	overrideInt(&cfg.ASR.MaxProcessingMS, "SEINSIGHT_ASR_MAX_PROCESSING_TIME_MS")
	overrideString(&cfg.ASR.WhisperCommand, "SEINSIGHT_ASR_WHISPER_COMMAND")
	overrideString(&cfg.ASR.WhisperModelPath, "SEINSIGHT_ASR_WHISPER_MODEL_PATH")
	overrideBool(&cfg.Terms.Persist, "SEINSIGHT_TERMS_PERSIST")
	overrideString(&cfg.Terms.StorePath, "SEINSIGHT_TERMS_STORE_PATH")
	overrideInt(&cfg.Connection.MaxConnections, "SEINSIGHT_CONNECTION_MAX_CONNECTIONS")
	overrideInt(&cfg.Connection.IdleTimeoutS, "SEINSIGHT_CONNECTION_IDLE_TIMEOUT_S")
	overrideInt(&cfg.Connection.SweepIntervalS, "SEINSIGHT_CONNECTION_SWEEP_INTERVAL_S")
	overrideInt(&cfg.Connection.HeartbeatS, "SEINSIGHT_CONNECTION_HEARTBEAT_INTERVAL_S")
	overrideInt(&cfg.Connection.MaxMessageBytes, "SEINSIGHT_CONNECTION_MAX_MESSAGE_BYTES")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if cfg.Audio.Channels <= 0 {
		return errors.New("audio.channels must be positive")
	}
	if cfg.Audio.WindowSeconds <= 0 {
		return errors.New("audio.window_seconds must be positive")
	}
	if cfg.Audio.OverlapFraction < 0 || cfg.Audio.OverlapFraction >= 1 {
		return errors.New("audio.overlap_fraction must be in [0, 1)")
	}
	if cfg.Audio.MaxBufferSeconds < cfg.Audio.WindowSeconds {
		return errors.New("audio.max_buffer_seconds must be at least audio.window_seconds")
	}
	if len(cfg.ASR.Engines) == 0 {
		return errors.New("asr.engines must not be empty")
	}
	for _, name := range cfg.ASR.Engines {
		switch name {
		case "whisper", "google", "mock":
		default:
			return fmt.Errorf("asr.engines contains unknown engine %q", name)
		}
		if name == "whisper" && cfg.ASR.WhisperCommand == "" {
			return errors.New("asr.whisper_command must be set when the whisper engine is configured")
		}
	}
	if cfg.ASR.ConfidenceThreshold < 0 || cfg.ASR.ConfidenceThreshold > 1 {
		return errors.New("asr.confidence_threshold must be in [0, 1]")
	}
	if cfg.ASR.MaxProcessingMS <= 0 {
		return errors.New("asr.max_processing_time_ms must be positive")
	}
	if cfg.Terms.Persist && cfg.Terms.StorePath == "" {
		return errors.New("terms.store_path must not be empty when persistence is enabled")
	}
	if cfg.Connection.MaxConnections <= 0 {
		return errors.New("connection.max_connections must be positive")
	}
	if cfg.Connection.IdleTimeoutS <= 0 {
		return errors.New("connection.idle_timeout_s must be positive")
	}
	if cfg.Connection.SweepIntervalS <= 0 {
		return errors.New("connection.sweep_interval_s must be positive")
	}
	if cfg.Connection.MaxMessageBytes <= 0 {
		return errors.New("connection.max_message_bytes must be positive")
	}
	return nil
}
