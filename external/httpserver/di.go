package httpserver

import (
	"github.com/foxseedlab/segscribe/internal/config"
	"github.com/foxseedlab/segscribe/internal/job"
	"github.com/foxseedlab/segscribe/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		processor := do.MustInvoke[*job.Processor](i)
		repo := do.MustInvoke[repository.Repository](i)
		registry := do.MustInvoke[*prometheus.Registry](i)
		return NewServer(cfg, NewHandlers(cfg, processor, repo), registry), nil
	})
}
