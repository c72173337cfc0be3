package job

import (
	"fmt"
	"strings"
	"time"
)

const (
	messageAttachmentTitleFormat = ":page_facing_up:  **Transcription of `%s`**"
	messageSummaryFormat         = "-# %d segments, %s of audio"
	messagePoweredByLine         = "-# *Powered by [segscribe](https://github.com/foxseedlab/segscribe)*"
)

func transcriptMessage(filename string, segments int, audioLength time.Duration) string {
	return strings.Join([]string{
		fmt.Sprintf(messageAttachmentTitleFormat, filename),
		fmt.Sprintf(messageSummaryFormat, segments, formatElapsedHMS(audioLength)),
		messagePoweredByLine,
	}, "\n")
}
