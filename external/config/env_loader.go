package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/medtalklab/duoscribe/internal/config"
)

type envConfig struct {
	Env        string `env:"ENV" envDefault:"production"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8000"`

	DatabaseURL string `env:"DATABASE_URL,required"`

	RecognizerBackend string `env:"RECOGNIZER_BACKEND" envDefault:"soniox"`
	SonioxAPIKey      string `env:"SONIOX_API_KEY"`
	SonioxModel       string `env:"SONIOX_MODEL" envDefault:"stt-rt-v3"`

	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`

	DefaultPrimaryLanguage   string `env:"DEFAULT_PRIMARY_LANGUAGE,required"`
	DefaultSecondaryLanguage string `env:"DEFAULT_SECONDARY_LANGUAGE,required"`
	PrimaryRole              string `env:"PRIMARY_ROLE" envDefault:"Doctor"`
	SecondaryRole            string `env:"SECONDARY_ROLE" envDefault:"Patient"`

	DisplayWindowChars    int `env:"DISPLAY_WINDOW_CHARS" envDefault:"2000"`
	MaxSessionDurationMin int `env:"MAX_SESSION_DURATION_MIN" envDefault:"120"`

	ConversationWebhookURL string `env:"CONVERSATION_WEBHOOK_URL"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		ListenAddr:                 raw.ListenAddr,
		DatabaseURL:                raw.DatabaseURL,
		RecognizerBackend:          raw.RecognizerBackend,
		SonioxAPIKey:               raw.SonioxAPIKey,
		SonioxModel:                raw.SonioxModel,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		DefaultPrimaryLanguage:     raw.DefaultPrimaryLanguage,
		DefaultSecondaryLanguage:   raw.DefaultSecondaryLanguage,
		PrimaryRole:                raw.PrimaryRole,
		SecondaryRole:              raw.SecondaryRole,
		DisplayWindowChars:         raw.DisplayWindowChars,
		MaxSessionDurationMin:      raw.MaxSessionDurationMin,
		ConversationWebhookURL:     raw.ConversationWebhookURL,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
