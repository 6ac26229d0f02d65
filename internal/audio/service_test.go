package audio

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapdesk/zapdesk/internal/config"
)

type fakeFetcher struct {
	data []byte
	err  error
}

func (f *fakeFetcher) FetchMedia(ctx context.Context, mediaID string) ([]byte, error) {
	return f.data, f.err
}

type fakeSpeech struct {
	transcription    string
	transcribeErr    error
	transcribedPaths []string
	speechErr        error
	speechAudio      string
}

func (f *fakeSpeech) CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
	f.transcribedPaths = append(f.transcribedPaths, req.FilePath)
	if f.transcribeErr != nil {
		return openai.AudioResponse{}, f.transcribeErr
	}
	return openai.AudioResponse{Text: f.transcription}, nil
}

func (f *fakeSpeech) CreateSpeech(ctx context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error) {
	if f.speechErr != nil {
		return openai.RawResponse{}, f.speechErr
	}
	return openai.RawResponse{ReadCloser: io.NopCloser(strings.NewReader(f.speechAudio))}, nil
}

func newTestService(t *testing.T, fetcher *fakeFetcher, speech *fakeSpeech) *Service {
	t.Helper()
	return NewService(nil, fetcher, speech, config.AudioConfig{
		TempDir:     t.TempDir(),
		MaxAgeHours: 24,
	})
}

func TestHandleAudioRoundTrip(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("ogg-bytes")}
	speech := &fakeSpeech{transcription: "hello world"}
	svc := newTestService(t, fetcher, speech)

	text, err := svc.HandleAudio(context.Background(), "media-1")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	// the spooled file was handed to the transcriber
	require.Len(t, speech.transcribedPaths, 1)
	data, err := os.ReadFile(speech.transcribedPaths[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("ogg-bytes"), data)
}

func TestDownloadPropagatesFetchError(t *testing.T) {
	wantErr := errors.New("media unavailable")
	svc := newTestService(t, &fakeFetcher{err: wantErr}, &fakeSpeech{})

	_, err := svc.Download(context.Background(), "media-1")
	assert.ErrorIs(t, err, wantErr)
}

func TestTranscribeTrimsWhitespace(t *testing.T) {
	svc := newTestService(t, &fakeFetcher{data: []byte("x")}, &fakeSpeech{transcription: "  padded  "})

	path, err := svc.Download(context.Background(), "media-1")
	require.NoError(t, err)

	text, err := svc.Transcribe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "padded", text)
}

func TestGenerate(t *testing.T) {
	speech := &fakeSpeech{speechAudio: "mp3-bytes"}
	svc := newTestService(t, &fakeFetcher{}, speech)

	path, err := svc.Generate(context.Background(), "olá", "pt")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".mp3"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), data)
}

func TestSweepRemovesOnlyExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(nil, &fakeFetcher{}, &fakeSpeech{}, config.AudioConfig{
		TempDir:     dir,
		MaxAgeHours: 1,
	})

	oldFile := filepath.Join(dir, "old.ogg")
	freshFile := filepath.Join(dir, "fresh.mp3")
	otherFile := filepath.Join(dir, "keep.txt")
	for _, p := range []string{oldFile, freshFile, otherFile} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}
	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, stale, stale))
	require.NoError(t, os.Chtimes(otherFile, stale, stale))

	svc.Sweep()

	assert.NoFileExists(t, oldFile)
	assert.FileExists(t, freshFile)
	// only audio spool files are swept
	assert.FileExists(t, otherFile)
}
