package config

import "fmt"

// Recognizer backends.
const (
	BackendSoniox = "soniox"
	BackendGoogle = "google"
)

type Config struct {
	Env        string
	ListenAddr string

	DatabaseURL string

	RecognizerBackend string
	SonioxAPIKey      string
	SonioxModel       string

	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string

	DefaultPrimaryLanguage   string
	DefaultSecondaryLanguage string
	PrimaryRole              string
	SecondaryRole            string

	DisplayWindowChars    int
	MaxSessionDurationMin int

	ConversationWebhookURL string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.RecognizerBackend {
	case BackendSoniox:
		if c.SonioxAPIKey == "" {
			return fmt.Errorf("SONIOX_API_KEY is required when RECOGNIZER_BACKEND=%s", BackendSoniox)
		}
	case BackendGoogle:
		if c.GoogleCloudProjectID == "" || c.GoogleCloudCredentialsJSON == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID and GOOGLE_CLOUD_CREDENTIALS_JSON are required when RECOGNIZER_BACKEND=%s", BackendGoogle)
		}
	default:
		return fmt.Errorf("RECOGNIZER_BACKEND must be %q or %q, got %q", BackendSoniox, BackendGoogle, c.RecognizerBackend)
	}
	if c.DisplayWindowChars <= 0 {
		return fmt.Errorf("DISPLAY_WINDOW_CHARS must be positive, got %d", c.DisplayWindowChars)
	}
	if c.MaxSessionDurationMin <= 0 {
		return fmt.Errorf("MAX_SESSION_DURATION_MIN must be positive, got %d", c.MaxSessionDurationMin)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "LISTEN_ADDR", value: c.ListenAddr},
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "DEFAULT_PRIMARY_LANGUAGE", value: c.DefaultPrimaryLanguage},
		{name: "DEFAULT_SECONDARY_LANGUAGE", value: c.DefaultSecondaryLanguage},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
