package transcriber

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/segscribe/internal/audio"
	"github.com/foxseedlab/segscribe/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	speechAPIEndpointPort = 443
	// Streaming requests reject audio chunks above 25600 bytes.
	speechAudioChunkBytes = 25600
)

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string
	Policy          transcriber.RetryPolicy
}

type streamOpener func(ctx context.Context) (speechpb.Speech_StreamingRecognizeClient, error)

type speechDialer func(ctx context.Context) (open streamOpener, closeFn func() error, err error)

// CloudSpeechTranscriber recognizes one segment per streaming call. Segments never
// exceed the five minute stream limit, so a single stream covers a whole segment.
type CloudSpeechTranscriber struct {
	projectID       string
	credentialsJSON string
	language        string
	location        string
	model           string
	policy          transcriber.RetryPolicy
	dial            speechDialer
}

func NewCloudSpeechTranscriber(cfg CloudSpeechConfig) *CloudSpeechTranscriber {
	location := strings.TrimSpace(cfg.Location)
	if location == "" {
		location = "global"
	}
	t := &CloudSpeechTranscriber{
		projectID:       cfg.ProjectID,
		credentialsJSON: cfg.CredentialsJSON,
		language:        cfg.Language,
		location:        location,
		model:           strings.TrimSpace(cfg.Model),
		policy:          cfg.Policy,
	}
	t.dial = t.dialSpeech
	return t
}

func (t *CloudSpeechTranscriber) dialSpeech(ctx context.Context) (streamOpener, func() error, error) {
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(t.credentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("detect credentials: %w", err)
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if t.location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", t.location, speechAPIEndpointPort)))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}
	open := func(ctx context.Context) (speechpb.Speech_StreamingRecognizeClient, error) {
		return client.StreamingRecognize(ctx)
	}
	return open, client.Close, nil
}

func (t *CloudSpeechTranscriber) Transcribe(ctx context.Context, seg audio.Segment) transcriber.Result {
	open, closeFn, err := t.dial(ctx)
	if err != nil {
		return transcriber.Result{Status: transcriber.StatusFailed, Err: fmt.Errorf("create speech client: %w", err)}
	}
	defer func() {
		if err := closeFn(); err != nil {
			slog.Warn("failed to close speech client", "error", err)
		}
	}()

	pcm := pcmBytes(seg.Samples)
	return t.policy.Do(ctx, func(ctx context.Context, n int) transcriber.Attempt {
		text, err := t.recognize(ctx, open, seg, pcm)
		if err != nil {
			a := classifyGRPCError(ctx, err)
			logAttemptFailure(seg, n, t.policy.MaxRetries, a)
			return a
		}
		return transcriber.Attempt{Outcome: transcriber.OutcomeSucceeded, Text: text}
	})
}

func (t *CloudSpeechTranscriber) recognize(ctx context.Context, open streamOpener, seg audio.Segment, pcm []byte) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := open(ctx)
	if err != nil {
		return "", err
	}
	if err := stream.Send(t.configRequest(seg)); err != nil {
		return "", err
	}
	for off := 0; off < len(pcm); off += speechAudioChunkBytes {
		end := min(off+speechAudioChunkBytes, len(pcm))
		if err := stream.Send(&speechpb.StreamingRecognizeRequest{
			StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{Audio: pcm[off:end]},
		}); err != nil {
			// The server reports the real cause on Recv.
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
	}
	if err := stream.CloseSend(); err != nil {
		return "", err
	}

	var parts []string
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		for _, result := range resp.GetResults() {
			if !result.GetIsFinal() || len(result.GetAlternatives()) == 0 {
				continue
			}
			if text := strings.TrimSpace(result.GetAlternatives()[0].GetTranscript()); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, " "), nil
}

func (t *CloudSpeechTranscriber) configRequest(seg audio.Segment) *speechpb.StreamingRecognizeRequest {
	sampleRate := seg.SampleRate
	if sampleRate == 0 {
		sampleRate = audio.SampleRate
	}
	return &speechpb.StreamingRecognizeRequest{
		Recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", t.projectID, t.location),
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Model:         t.model,
					LanguageCodes: []string{t.language},
					DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
						ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
							Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
							SampleRateHertz:   int32(sampleRate),
							AudioChannelCount: audio.Channels,
						},
					},
					Features: &speechpb.RecognitionFeatures{},
				},
			},
		},
	}
}

// classifyGRPCError maps a failed stream onto retry outcomes.
func classifyGRPCError(ctx context.Context, err error) transcriber.Attempt {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return transcriber.Attempt{Outcome: transcriber.OutcomeFatal, Err: ctxErr}
	}
	st, ok := status.FromError(err)
	if !ok {
		return transcriber.Attempt{Outcome: transcriber.OutcomeNetworkError, Err: err}
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return transcriber.Attempt{Outcome: transcriber.OutcomeNetworkError, Err: err}
	case codes.ResourceExhausted:
		return transcriber.Attempt{Outcome: transcriber.OutcomeRateLimited, Err: err}
	default:
		return transcriber.Attempt{Outcome: transcriber.OutcomeRejected, Err: err}
	}
}

func pcmBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
