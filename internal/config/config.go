// Package config handles pushtalk configuration
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	apperrors "github.com/GriffinCanCode/pushtalk/internal/errors"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr" validate:"required"`
	GRPCAddr string `yaml:"grpc_addr" validate:"required"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	AudioBackend    string   `yaml:"audio_backend" validate:"oneof=portaudio malgo"`
	FramesPerBuffer int      `yaml:"frames_per_buffer" validate:"min=64,max=8192"`
	SampleFormat    string   `yaml:"sample_format" validate:"oneof=float32 int16"`
	InputDevice     string   `yaml:"input_device"`
	ExcludedDevices []string `yaml:"excluded_devices"`
	// PeriodMs is the miniaudio callback period; PortAudio reads FramesPerBuffer instead.
	PeriodMs int `yaml:"period_ms" validate:"min=5,max=500"`

	Model             string        `yaml:"model" validate:"required"`
	ProxyEndpoint     string        `yaml:"proxy_endpoint" validate:"omitempty,url"`
	GeminiAPIKey      string        `yaml:"gemini_api_key"`
	GroqAPIKey        string        `yaml:"groq_api_key"`
	GroqBaseURL       string        `yaml:"groq_base_url" validate:"omitempty,url"`
	WhisperModel      string        `yaml:"whisper_model"`
	DefaultLanguage   string        `yaml:"default_language" validate:"omitempty,min=2,max=5"`
	TranslationTarget string        `yaml:"translation_target" validate:"omitempty,min=2,max=5"`
	TranscribeTimeout time.Duration `yaml:"transcribe_timeout" validate:"min=1s"`

	CommandsEnabled bool   `yaml:"commands_enabled"`
	WakewordEnabled bool   `yaml:"wakeword_enabled"`
	Wakeword        string `yaml:"wakeword" validate:"required_if=WakewordEnabled true"`
	WakewordStop    string `yaml:"wakeword_stop"`
	Hotkey          string `yaml:"hotkey"`
	HoldToTalk      bool   `yaml:"hold_to_talk"`

	AIEditing      bool     `yaml:"ai_editing"`
	FormatCommands bool     `yaml:"format_commands"`
	WritingStyle   string   `yaml:"writing_style" validate:"oneof=auto formal casual technical"`
	WhisperMode    bool     `yaml:"whisper_mode"`
	Dictionary     []string `yaml:"dictionary"`

	NotificationsEnabled bool `yaml:"notifications_enabled"`
	MetricsEnabled       bool `yaml:"metrics_enabled"`
	HistorySize          int  `yaml:"history_size" validate:"min=1,max=10000"`

	ArchiveBucket    string `yaml:"archive_bucket"`
	ArchiveEndpoint  string `yaml:"archive_endpoint" validate:"omitempty,url"`
	ArchiveRegion    string `yaml:"archive_region" validate:"required_with=ArchiveBucket"`
	ArchiveAccessKey string `yaml:"archive_access_key"`
	ArchiveSecretKey string `yaml:"archive_secret_key" validate:"required_with=ArchiveAccessKey"`
	ArchivePrefix    string `yaml:"archive_prefix"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		HTTPAddr:             ":8000",
		GRPCAddr:             ":50051",
		LogLevel:             "info",
		AudioBackend:         "portaudio",
		FramesPerBuffer:      1024,
		SampleFormat:         "float32",
		ExcludedDevices:      []string{"iphone", "teams"},
		PeriodMs:             20,
		Model:                "gemini-3-flash",
		ProxyEndpoint:        "http://127.0.0.1:8045",
		GroqBaseURL:          "https://api.groq.com/openai/v1",
		WhisperModel:         "whisper-large-v3-turbo",
		DefaultLanguage:      "tr",
		TranslationTarget:    "en",
		TranscribeTimeout:    30 * time.Second,
		CommandsEnabled:      true,
		WakewordEnabled:      true,
		Wakeword:             "millow",
		WakewordStop:         "millow bye bye",
		Hotkey:               "Option+Space",
		HoldToTalk:           true,
		AIEditing:            true,
		FormatCommands:       true,
		WritingStyle:         "auto",
		NotificationsEnabled: true,
		MetricsEnabled:       true,
		HistorySize:          100,
		ArchiveRegion:        "us-east-1",
		ArchivePrefix:        "recordings/",
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE, and environment overrides, then validates it.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ConfigInvalid, "open config %q", path)
		}
		defer f.Close()
		if err := decode(f, cfg); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ConfigInvalid, "parse config %q", path)
		}
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults and validates the
// result. Environment overrides are not applied.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Defaults()
	if err := decode(r, cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ConfigInvalid, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every failure at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.Wrap(err, apperrors.ConfigInvalid, "validate config")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return apperrors.New(apperrors.ConfigInvalid, "invalid config: "+strings.Join(msgs, "; ")).
		WithMetadata("fields", strconv.Itoa(len(verrs)))
}

// ArchiveEnabled reports whether recordings should be uploaded.
func (c *Config) ArchiveEnabled() bool { return c.ArchiveBucket != "" }

func applyEnv(c *Config) {
	c.HTTPAddr = getEnv("HTTP_ADDR", c.HTTPAddr)
	c.GRPCAddr = getEnv("GRPC_ADDR", c.GRPCAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.AudioBackend = getEnv("AUDIO_BACKEND", c.AudioBackend)
	c.FramesPerBuffer = getEnvInt("FRAMES_PER_BUFFER", c.FramesPerBuffer)
	c.SampleFormat = getEnv("SAMPLE_FORMAT", c.SampleFormat)
	c.InputDevice = getEnv("INPUT_DEVICE", c.InputDevice)
	c.ExcludedDevices = getEnvList("EXCLUDED_AUDIO_DEVICES", c.ExcludedDevices)
	c.PeriodMs = getEnvInt("PERIOD_MS", c.PeriodMs)
	c.Model = getEnv("MODEL", c.Model)
	c.ProxyEndpoint = getEnv("PROXY_ENDPOINT", c.ProxyEndpoint)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GroqAPIKey = getEnv("GROQ_API_KEY", c.GroqAPIKey)
	c.GroqBaseURL = getEnv("GROQ_BASE_URL", c.GroqBaseURL)
	c.WhisperModel = getEnv("WHISPER_MODEL", c.WhisperModel)
	c.DefaultLanguage = getEnv("DEFAULT_LANGUAGE", c.DefaultLanguage)
	c.TranslationTarget = getEnv("TRANSLATION_TARGET", c.TranslationTarget)
	c.TranscribeTimeout = getEnvDuration("TRANSCRIBE_TIMEOUT", c.TranscribeTimeout)
	c.CommandsEnabled = getEnvBool("COMMANDS_ENABLED", c.CommandsEnabled)
	c.WakewordEnabled = getEnvBool("WAKEWORD_ENABLED", c.WakewordEnabled)
	c.Wakeword = getEnv("WAKEWORD", c.Wakeword)
	c.WakewordStop = getEnv("WAKEWORD_STOP", c.WakewordStop)
	c.Hotkey = getEnv("HOTKEY", c.Hotkey)
	c.HoldToTalk = getEnvBool("HOLD_TO_TALK", c.HoldToTalk)
	c.AIEditing = getEnvBool("AI_EDITING", c.AIEditing)
	c.FormatCommands = getEnvBool("FORMAT_COMMANDS", c.FormatCommands)
	c.WritingStyle = getEnv("WRITING_STYLE", c.WritingStyle)
	c.WhisperMode = getEnvBool("WHISPER_MODE", c.WhisperMode)
	c.Dictionary = getEnvList("DICTIONARY", c.Dictionary)
	c.NotificationsEnabled = getEnvBool("NOTIFICATIONS_ENABLED", c.NotificationsEnabled)
	c.MetricsEnabled = getEnvBool("METRICS_ENABLED", c.MetricsEnabled)
	c.HistorySize = getEnvInt("HISTORY_SIZE", c.HistorySize)
	c.ArchiveBucket = getEnv("ARCHIVE_BUCKET", c.ArchiveBucket)
	c.ArchiveEndpoint = getEnv("ARCHIVE_ENDPOINT", c.ArchiveEndpoint)
	c.ArchiveRegion = getEnv("ARCHIVE_REGION", c.ArchiveRegion)
	c.ArchiveAccessKey = getEnv("ARCHIVE_ACCESS_KEY", c.ArchiveAccessKey)
	c.ArchiveSecretKey = getEnv("ARCHIVE_SECRET_KEY", c.ArchiveSecretKey)
	c.ArchivePrefix = getEnv("ARCHIVE_PREFIX", c.ArchivePrefix)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
