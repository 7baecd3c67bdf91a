package settings

// Package settings holds the user-tunable configuration of the chat client:
// the completion request knobs, the API client credentials, and the UI
// preferences. The chat and UI sections travel inside exported snapshots;
// client credentials never leave the process.

import (
	"io"

	"github.com/huandu/go-clone"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type ChatSettings struct {
	Model        string   `yaml:"model" json:"model"`
	Temperature  *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens    *int     `yaml:"max_tokens,omitempty" json:"maxTokens,omitempty"`
	SystemPrompt string   `yaml:"system_prompt,omitempty" json:"systemPrompt,omitempty"`
}

type ClientSettings struct {
	APIKey  string `yaml:"api_key,omitempty" json:"-"`
	BaseURL string `yaml:"base_url,omitempty" json:"-"`
}

type UISettings struct {
	// TypingSpeedMs is the reveal interval in milliseconds per character.
	TypingSpeedMs int    `yaml:"typing_speed_ms" json:"typingSpeedMs"`
	Theme         string `yaml:"theme,omitempty" json:"theme,omitempty"`
	// SpeechInput is a capability flag only; audio capture is not implemented.
	SpeechInput bool `yaml:"speech_input,omitempty" json:"speechInput,omitempty"`
}

type Settings struct {
	Chat   *ChatSettings   `yaml:"chat" json:"chat"`
	Client *ClientSettings `yaml:"client,omitempty" json:"-"`
	UI     *UISettings     `yaml:"ui" json:"ui"`
}

const (
	DefaultModel         = "gpt-3.5-turbo"
	DefaultTemperature   = 0.7
	DefaultMaxTokens     = 1024
	DefaultTypingSpeedMs = 30
)

func NewSettings() *Settings {
	temperature := DefaultTemperature
	maxTokens := DefaultMaxTokens
	return &Settings{
		Chat: &ChatSettings{
			Model:       DefaultModel,
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
		},
		Client: &ClientSettings{},
		UI: &UISettings{
			TypingSpeedMs: DefaultTypingSpeedMs,
		},
	}
}

func NewSettingsFromYAML(r io.Reader) (*Settings, error) {
	s := NewSettings()
	if err := yaml.NewDecoder(r).Decode(s); err != nil {
		return nil, err
	}
	return s.Normalize(), nil
}

// UpdateFromViper overlays values bound from flags, environment or the config
// file onto the settings. Only keys that were actually set are applied.
func (s *Settings) UpdateFromViper(v *viper.Viper) {
	if v.IsSet("openai-api-key") {
		s.Client.APIKey = v.GetString("openai-api-key")
	}
	if v.IsSet("openai-base-url") {
		s.Client.BaseURL = v.GetString("openai-base-url")
	}
	if v.IsSet("model") {
		s.Chat.Model = v.GetString("model")
	}
	if v.IsSet("temperature") {
		t := v.GetFloat64("temperature")
		s.Chat.Temperature = &t
	}
	if v.IsSet("max-tokens") {
		m := v.GetInt("max-tokens")
		s.Chat.MaxTokens = &m
	}
	if v.IsSet("system-prompt") {
		s.Chat.SystemPrompt = v.GetString("system-prompt")
	}
	if v.IsSet("typing-speed-ms") {
		s.UI.TypingSpeedMs = v.GetInt("typing-speed-ms")
	}
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}

// Normalize fills in nil sections so callers never have to nil-check them.
// Deserialized settings (YAML files, imported snapshots) may omit whole
// sections; the client section in particular is stripped from snapshots.
func (s *Settings) Normalize() *Settings {
	if s.Chat == nil {
		s.Chat = NewSettings().Chat
	}
	if s.Client == nil {
		s.Client = &ClientSettings{}
	}
	if s.UI == nil {
		s.UI = &UISettings{TypingSpeedMs: DefaultTypingSpeedMs}
	}
	return s
}
