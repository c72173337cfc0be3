package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*prometheus.Registry, error) {
		return NewRegistry(), nil
	})
	do.Provide(injector, func(i do.Injector) (*Metrics, error) {
		return New(do.MustInvoke[*prometheus.Registry](i)), nil
	})
}
