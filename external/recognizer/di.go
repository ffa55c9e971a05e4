package recognizer

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/medtalklab/duoscribe/internal/config"
	"github.com/medtalklab/duoscribe/internal/recognizer"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (recognizer.Recognizer, error) {
		cfg := do.MustInvoke[*config.Config](i)
		switch cfg.RecognizerBackend {
		case config.BackendSoniox:
			return NewSonioxRecognizer(SonioxConfig{
				APIKey: cfg.SonioxAPIKey,
				Model:  cfg.SonioxModel,
			}), nil
		case config.BackendGoogle:
			return NewCloudSpeechRecognizer(CloudSpeechConfig{
				ProjectID:       cfg.GoogleCloudProjectID,
				CredentialsJSON: cfg.GoogleCloudCredentialsJSON,
				Location:        cfg.GoogleCloudSpeechLocation,
				Model:           cfg.GoogleCloudSpeechModel,
			}), nil
		default:
			return nil, fmt.Errorf("unknown recognizer backend %q", cfg.RecognizerBackend)
		}
	})
}
