package audio

import (
	"github.com/foxseedlab/segscribe/internal/audio"
	"github.com/foxseedlab/segscribe/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (audio.Decoder, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewDecoder(c.FFmpegPath), nil
	})
	do.Provide(injector, func(i do.Injector) (*audio.Segmenter, error) {
		c := do.MustInvoke[*config.Config](i)
		return audio.NewSegmenter(do.MustInvoke[audio.Decoder](i), audio.SegmenterConfig{
			SegmentDuration:    c.SegmentDuration,
			MinSegmentDuration: c.MinSegmentDuration,
		}), nil
	})
}
