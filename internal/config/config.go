// Package config loads go-theater settings from defaults, an optional YAML
// file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. THEATER_LLM_MODEL.
const EnvPrefix = "THEATER"

// Config is the full runtime configuration of a performance.
type Config struct {
	Robot       RobotConfig       `mapstructure:"robot"`
	Motion      MotionConfig      `mapstructure:"motion"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	Dialogflow  DialogflowConfig  `mapstructure:"dialogflow"`
	Audio       AudioConfig       `mapstructure:"audio"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Performance PerformanceConfig `mapstructure:"performance"`
	Journal     JournalConfig     `mapstructure:"journal"`
	Web         WebConfig         `mapstructure:"web"`
	Log         LogConfig         `mapstructure:"log"`
}

// RobotConfig addresses the robot bridge.
type RobotConfig struct {
	IP              string        `mapstructure:"ip"`
	Port            int           `mapstructure:"port"`
	Timeout         time.Duration `mapstructure:"timeout"`
	AnimationPrefix string        `mapstructure:"animation_prefix"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

// BaseURL returns the bridge HTTP base URL.
func (r RobotConfig) BaseURL() string { return RobotAPIURL(r.IP, r.Port) }

// AudioURL returns the bridge microphone websocket URL.
func (r RobotConfig) AudioURL() string { return RobotAudioURL(r.IP, r.Port) }

// MotionConfig locates pre-recorded motions.
type MotionConfig struct {
	Dir string `mapstructure:"dir"`
}

// CatalogConfig selects the gesture script. An empty file means the
// embedded default script.
type CatalogConfig struct {
	File string `mapstructure:"file"`
}

// DialogflowConfig addresses the intent detection agent.
type DialogflowConfig struct {
	KeyFile   string `mapstructure:"keyfile"`
	ProjectID string `mapstructure:"project_id"`
	AgentID   string `mapstructure:"agent_id"`
	Location  string `mapstructure:"location"`
	Language  string `mapstructure:"language"`
	Endpoint  string `mapstructure:"endpoint"`
}

// AudioConfig tunes microphone capture and endpointing.
type AudioConfig struct {
	SampleRate       int           `mapstructure:"sample_rate"`
	SilenceThreshold float64       `mapstructure:"silence_threshold"`
	EndSilence       time.Duration `mapstructure:"end_silence"`
	MaxUtterance     time.Duration `mapstructure:"max_utterance"`
	StartTimeout     time.Duration `mapstructure:"start_timeout"`
}

// LLMConfig configures the fallback language model.
type LLMConfig struct {
	Provider     string  `mapstructure:"provider"`
	Model        string  `mapstructure:"model"`
	GeminiModel  string  `mapstructure:"gemini_model"`
	Temperature  float64 `mapstructure:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	BaseURL      string  `mapstructure:"base_url"`
	SystemPrompt string  `mapstructure:"system_prompt"`
	OpenAIKey    string  `mapstructure:"openai_api_key"`
	GeminiKey    string  `mapstructure:"gemini_api_key"`
}

// PerformanceConfig holds the show-level settings.
type PerformanceConfig struct {
	OpeningLine    string `mapstructure:"opening_line"`
	OpeningPosture string `mapstructure:"opening_posture"`
	InitialState   string `mapstructure:"initial_state"`
	RobotName      string `mapstructure:"robot_name"`
}

// JournalConfig enables the SQLite turn journal when Path is set.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// WebConfig enables the stage monitor when Port is non-zero.
type WebConfig struct {
	Port int `mapstructure:"port"`
}

// LogConfig configures internal/log.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("robot.ip", DefaultRobotIP)
	v.SetDefault("robot.port", DefaultRobotPort)
	v.SetDefault("robot.timeout", 5*time.Second)
	v.SetDefault("robot.animation_prefix", "animations/")
	v.SetDefault("robot.breaker_failures", 5)
	v.SetDefault("robot.breaker_cooldown", 10*time.Second)

	v.SetDefault("motion.dir", "motions")
	v.SetDefault("catalog.file", "")

	v.SetDefault("dialogflow.keyfile", "conf/google/google-key.json")
	v.SetDefault("dialogflow.project_id", "")
	v.SetDefault("dialogflow.agent_id", "3e375e92-66e0-42f9-8882-0f3f97988c0e")
	v.SetDefault("dialogflow.location", "europe-west4")
	v.SetDefault("dialogflow.language", "en")
	v.SetDefault("dialogflow.endpoint", "")

	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.silence_threshold", 500.0)
	v.SetDefault("audio.end_silence", 800*time.Millisecond)
	v.SetDefault("audio.max_utterance", 15*time.Second)
	v.SetDefault("audio.start_timeout", 8*time.Second)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.gemini_model", "gemini-2.0-flash")
	v.SetDefault("llm.temperature", 0.8)
	v.SetDefault("llm.max_tokens", 80)
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.system_prompt", "You are NAO the robot in a theatre show. Respond with short dry humor.")
	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.gemini_api_key", "")

	v.SetDefault("performance.opening_line", "Hello, I am Cody, nice to meet you!")
	v.SetDefault("performance.opening_posture", "Stand")
	v.SetDefault("performance.initial_state", "INTRODUCTION")
	v.SetDefault("performance.robot_name", "NAO")

	v.SetDefault("journal.path", "")
	v.SetDefault("web.port", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// New returns a viper instance with defaults and environment bindings in place.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names used by the robot tooling and the provider SDKs.
	mustBind(v, "robot.ip", "THEATER_ROBOT_IP", "ROBOT_IP")
	mustBind(v, "llm.openai_api_key", "THEATER_LLM_OPENAI_API_KEY", "OPENAI_API_KEY")
	mustBind(v, "llm.gemini_api_key", "THEATER_LLM_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	mustBind(v, "dialogflow.keyfile", "THEATER_DIALOGFLOW_KEYFILE", "GOOGLE_APPLICATION_CREDENTIALS")
	return v
}

func mustBind(v *viper.Viper, key string, envs ...string) {
	if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
		panic(err)
	}
}

// LoadDotEnv loads .env from the working directory if present.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Load reads the optional config file into v and decodes the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate reports settings a live performance cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Robot.IP == "" {
		errs = append(errs, errors.New("robot.ip is required"))
	}
	if c.Robot.Port <= 0 {
		errs = append(errs, fmt.Errorf("robot.port must be positive, got %d", c.Robot.Port))
	}
	if c.Dialogflow.AgentID == "" {
		errs = append(errs, errors.New("dialogflow.agent_id is required"))
	}
	if c.Dialogflow.Location == "" {
		errs = append(errs, errors.New("dialogflow.location is required"))
	}
	if c.Dialogflow.KeyFile == "" {
		errs = append(errs, errors.New("dialogflow.keyfile is required"))
	}
	switch c.LLM.Provider {
	case "openai", "gemini", "chain":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not one of openai, gemini, chain", c.LLM.Provider))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens))
	}
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	return errors.Join(errs...)
}
