package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ROBOT_IP", "")
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultRobotIP, cfg.Robot.IP)
	assert.Equal(t, 8000, cfg.Robot.Port)
	assert.Equal(t, "animations/", cfg.Robot.AnimationPrefix)
	assert.Equal(t, "europe-west4", cfg.Dialogflow.Location)
	assert.Equal(t, "en", cfg.Dialogflow.Language)
	assert.Equal(t, 16000, cfg.Audio.SampleRate)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.InDelta(t, 0.8, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 80, cfg.LLM.MaxTokens)
	assert.Equal(t, "INTRODUCTION", cfg.Performance.InitialState)
	assert.Equal(t, 5*time.Second, cfg.Robot.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "theater.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
robot:
  ip: 192.168.1.20
  timeout: 2s
llm:
  provider: gemini
  max_tokens: 120
`), 0o644))

	t.Setenv("THEATER_LLM_MODEL", "gpt-4o")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(New(), file)
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.20", cfg.Robot.IP)
	assert.Equal(t, 2*time.Second, cfg.Robot.Timeout)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 120, cfg.LLM.MaxTokens)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAIKey)
}

func TestRobotIPEnvOverride(t *testing.T) {
	t.Setenv("ROBOT_IP", "10.1.1.1")
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "10.1.1.1", cfg.Robot.IP)
	assert.Equal(t, "http://10.1.1.1:8000", cfg.Robot.BaseURL())
	assert.Equal(t, "ws://10.1.1.1:8000/ws/audio", cfg.Robot.AudioURL())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	cfg.Robot.IP = ""
	cfg.LLM.Provider = "claude"
	cfg.LLM.MaxTokens = 0

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "robot.ip")
	assert.Contains(t, err.Error(), "llm.provider")
	assert.Contains(t, err.Error(), "llm.max_tokens")
}

func TestLoadDotEnvMissingIsNotAnError(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestRobotIP(t *testing.T) {
	t.Setenv("ROBOT_IP", "")
	assert.Equal(t, "1.2.3.4", RobotIP("1.2.3.4"))
	t.Setenv("ROBOT_IP", "5.6.7.8")
	assert.Equal(t, "5.6.7.8", RobotIP("1.2.3.4"))
}
