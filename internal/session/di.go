package session

import (
	"github.com/samber/do/v2"

	"github.com/medtalklab/duoscribe/internal/config"
	"github.com/medtalklab/duoscribe/internal/metrics"
	"github.com/medtalklab/duoscribe/internal/recognizer"
	"github.com/medtalklab/duoscribe/internal/repository"
	"github.com/medtalklab/duoscribe/internal/webhook"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		rec := do.MustInvoke[recognizer.Recognizer](i)
		wh := do.MustInvoke[webhook.Sender](i)
		mtr := do.MustInvoke[*metrics.Metrics](i)
		return NewManager(cfg, repo, rec, wh, mtr), nil
	})
}
