package job

import (
	"github.com/foxseedlab/segscribe/internal/audio"
	"github.com/foxseedlab/segscribe/internal/config"
	"github.com/foxseedlab/segscribe/internal/discord"
	"github.com/foxseedlab/segscribe/internal/events"
	"github.com/foxseedlab/segscribe/internal/metrics"
	"github.com/foxseedlab/segscribe/internal/repository"
	"github.com/foxseedlab/segscribe/internal/transcriber"
	"github.com/foxseedlab/segscribe/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Processor, error) {
		cfg := do.MustInvoke[*config.Config](i)
		seg := do.MustInvoke[*audio.Segmenter](i)
		stt := do.MustInvoke[transcriber.Transcriber](i)
		repo := do.MustInvoke[repository.Repository](i)
		wh := do.MustInvoke[webhook.Sender](i)
		dc := do.MustInvoke[discord.Client](i)
		pub := do.MustInvoke[events.Publisher](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		return NewProcessor(cfg, seg, stt, repo, wh, dc, pub, m), nil
	})
}
