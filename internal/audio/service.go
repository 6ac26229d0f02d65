// Package audio implements the voice sub-pipeline: fetch a voice note from
// the channel, spool it to a temp file, transcribe it, and optionally
// synthesize speech for voice replies.
package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/zapdesk/zapdesk/internal/config"
)

// MediaFetcher resolves a channel media id to raw bytes.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, mediaID string) ([]byte, error)
}

// SpeechClient is the transcription/synthesis slice of the OpenAI client.
type SpeechClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// Service handles download, transcription, synthesis, and temp-file
// housekeeping for voice messages.
type Service struct {
	logger  *slog.Logger
	fetcher MediaFetcher
	speech  SpeechClient
	tempDir string
	maxAge  time.Duration
}

// NewService creates an audio service.
func NewService(log *slog.Logger, fetcher MediaFetcher, speech SpeechClient, cfg config.AudioConfig) *Service {
	if log == nil {
		log = slog.Default()
	}
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	maxAge := time.Duration(cfg.MaxAgeHours) * time.Hour
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &Service{
		logger:  log.With(slog.String("service", "audio")),
		fetcher: fetcher,
		speech:  speech,
		tempDir: tempDir,
		maxAge:  maxAge,
	}
}

// Download fetches the media bytes and spools them to a temp file,
// returning its path. Fetch failures propagate unchanged so callers can
// distinguish an unavailable media id.
func (s *Service) Download(ctx context.Context, mediaID string) (string, error) {
	data, err := s.fetcher.FetchMedia(ctx, mediaID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	path := filepath.Join(s.tempDir, uuid.NewString()+".ogg")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}

	s.logger.Info("audio downloaded", slog.String("media_id", mediaID), slog.String("path", path))
	return path, nil
}

// Transcribe submits the spooled file to the transcription model and
// returns the plain text.
func (s *Service) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := s.speech.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: path,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// HandleAudio runs the full voice pipeline for one media id and returns
// the transcription.
func (s *Service) HandleAudio(ctx context.Context, mediaID string) (string, error) {
	path, err := s.Download(ctx, mediaID)
	if err != nil {
		return "", err
	}
	return s.Transcribe(ctx, path)
}

// Generate synthesizes speech for a voice reply and returns the file path.
// The language tag is advisory; the synthesis model infers pronunciation
// from the text itself.
func (s *Service) Generate(ctx context.Context, text, language string) (string, error) {
	resp, err := s.speech.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.TTSModel1,
		Input: text,
		Voice: openai.VoiceAlloy,
	})
	if err != nil {
		return "", fmt.Errorf("generate speech: %w", err)
	}
	defer func() {
		_ = resp.Close()
	}()

	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	path := filepath.Join(s.tempDir, "response_"+uuid.NewString()+".mp3")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create speech file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := io.Copy(f, resp); err != nil {
		return "", fmt.Errorf("write speech file: %w", err)
	}

	s.logger.Info("speech generated", slog.String("path", path), slog.String("lang", language))
	return path, nil
}

// Sweep removes spooled audio files older than the configured age. It runs
// off the request path on a schedule; failures are logged only.
func (s *Service) Sweep() {
	cutoff := time.Now().Add(-s.maxAge)
	removed := 0
	for _, pattern := range []string{"*.ogg", "*.mp3"} {
		matches, err := filepath.Glob(filepath.Join(s.tempDir, pattern))
		if err != nil {
			s.logger.Warn("sweep glob failed", slog.Any("error", err))
			continue
		}
		for _, path := range matches {
			info, err := os.Stat(path)
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(path); err != nil {
				s.logger.Warn("sweep remove failed", slog.String("path", path), slog.Any("error", err))
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("swept temp audio files", slog.Int("removed", removed))
	}
}
