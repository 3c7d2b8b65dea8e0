package audio

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	openai "github.com/sashabaranov/go-openai"
)

// WhisperRecognizer sends clips to an OpenAI-compatible transcription endpoint.
type WhisperRecognizer struct {
	client *openai.Client
	model  string
}

// NewWhisperRecognizer builds a recognizer. An empty model selects whisper-1.
func NewWhisperRecognizer(apiKey, endpoint, model string, timeout time.Duration) *WhisperRecognizer {
	if model == "" {
		model = openai.Whisper1
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	cfg := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		cfg.BaseURL = endpoint
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &WhisperRecognizer{client: openai.NewClientWithConfig(cfg), model: model}
}

// Name implements Recognizer.
func (w *WhisperRecognizer) Name() string { return w.model }

// Transcribe implements Recognizer.
func (w *WhisperRecognizer) Transcribe(ctx context.Context, clip Clip) (string, error) {
	data, err := Encode(clip)
	if err != nil {
		return "", err
	}
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: "clip.wav",
		Reader:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	return resp.Text, nil
}

// Encode writes clip as a mono 16-bit WAV file. The encoder needs to seek
// back to patch the header, so it goes through a temporary file.
func Encode(clip Clip) ([]byte, error) {
	f, err := os.CreateTemp("", "markitup-*.wav")
	if err != nil {
		return nil, err
	}
	defer os.Remove(f.Name())
	defer f.Close()

	samples := make([]int, len(clip.Samples))
	for i, s := range clip.Samples {
		samples[i] = int(s)
	}

	enc := wav.NewEncoder(f, clip.SampleRate, 16, 1, 1)
	err = enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: clip.SampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	})
	if err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	return os.ReadFile(f.Name())
}
