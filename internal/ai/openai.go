// internal/ai/openai.go
package ai

import (
	"context"
	"fmt"
	"io"
	"strings"

	"bishop-bot/internal/logging"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

// Segment is one timed span of a transcription, in seconds from the start.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

type Transcription struct {
	Text     string
	Language string
	Duration float64
	Segments []Segment
}

type Service struct {
	client *openai.Client
	log    *log.Entry
}

// NewService builds a Whisper client. baseURL is optional and only needed
// for OpenAI-compatible endpoints.
func NewService(apiKey, baseURL string) *Service {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Service{
		client: openai.NewClientWithConfig(cfg),
		log:    logging.Component("ai"),
	}
}

// SpeechToText transcribes a WAV stream with timed segments.
func (s *Service) SpeechToText(ctx context.Context, audio io.Reader) (Transcription, error) {
	req := openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "recording.wav",
		Reader:   audio,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}

	resp, err := s.client.CreateTranscription(ctx, req)
	if err != nil {
		return Transcription{}, fmt.Errorf("whisper transcription: %w", err)
	}

	out := Transcription{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: resp.Duration,
	}
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		out.Segments = append(out.Segments, Segment{Start: seg.Start, End: seg.End, Text: text})
	}

	s.log.WithFields(log.Fields{"segments": len(out.Segments), "duration": out.Duration}).Debug("transcription complete")
	return out, nil
}
