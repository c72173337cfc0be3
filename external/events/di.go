package events

import (
	"github.com/foxseedlab/segscribe/internal/config"
	"github.com/foxseedlab/segscribe/internal/events"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (events.Publisher, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewKafkaPublisher(c.KafkaBrokers, c.KafkaTopic), nil
	})
}
