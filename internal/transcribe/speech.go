// Package transcribe converts recorded voice answers to text via Google
// Cloud Speech. Speech recognition itself is fully delegated; this wrapper
// bounds the call, picks a recognition config for the client's audio format
// and maps failures onto the shared gateway error taxonomy.
package transcribe

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/lateralab/soup-backend/internal/config"
	"github.com/lateralab/soup-backend/internal/model"
	"github.com/lateralab/soup-backend/internal/reasoning"
)

// Transcriber converts an audio recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string, language model.Language) (string, error)
	Close() error
}

// GoogleSpeech implements Transcriber with Cloud Speech-to-Text.
type GoogleSpeech struct {
	client  *speech.Client
	timeout time.Duration
	log     zerolog.Logger
}

// NewGoogleSpeech creates the transcriber. Credentials come from the
// standard GOOGLE_APPLICATION_CREDENTIALS environment.
func NewGoogleSpeech(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*GoogleSpeech, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}

	timeout := cfg.TranscribeTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &GoogleSpeech{
		client:  client,
		timeout: timeout,
		log:     log.With().Str("component", "transcriber").Logger(),
	}, nil
}

// Transcribe implements Transcriber. Empty audio yields an empty transcript
// rather than an error; the evaluator classifies silence as not_sure anyway.
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, mimeType string, language model.Language) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   encodingFor(mimeType),
			LanguageCode:               languageCode(language),
			EnableAutomaticPunctuation: true,
			Model:                      "latest_short",
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}

	resp, err := g.client.Recognize(ctx, req)
	if err != nil {
		return "", mapSpeechError(err)
	}

	var sb strings.Builder
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strings.TrimSpace(alts[0].GetTranscript()))
	}
	return sb.String(), nil
}

// Close implements Transcriber.
func (g *GoogleSpeech) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}

func encodingFor(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	switch {
	case strings.Contains(mimeType, "wav"), strings.Contains(mimeType, "x-wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(mimeType, "ogg"), strings.Contains(mimeType, "opus"):
		return speechpb.RecognitionConfig_OGG_OPUS
	case strings.Contains(mimeType, "flac"):
		return speechpb.RecognitionConfig_FLAC
	default:
		// m4a/aac containers: let the service sniff the header.
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

func languageCode(lang model.Language) string {
	if lang == model.LanguageZH {
		return "cmn-Hans-CN"
	}
	return "en-US"
}

// mapSpeechError folds gRPC failures into the gateway taxonomy: deadline and
// availability problems are retryable network faults, everything else is an
// upstream rejection.
func mapSpeechError(err error) error {
	switch status.Code(err) {
	case codes.DeadlineExceeded, codes.Unavailable, codes.Canceled:
		return fmt.Errorf("transcribe: %v: %w", err, reasoning.ErrNetwork)
	default:
		return fmt.Errorf("transcribe: %v: %w", err, reasoning.ErrUpstream)
	}
}
