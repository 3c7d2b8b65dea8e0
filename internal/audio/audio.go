// Package audio transcribes WAV recordings into a Markdown report.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/zh1zunbao/makritup/internal/errs"
)

// NoContent replaces an empty transcript.
const NoContent = "[No valid content recognized]"

const reportTemplate = "# Audio Transcription\n\n" +
	"## Basic Information\n" +
	"- **Sample Rate**: %d Hz\n" +
	"- **Recognition Engine**: %s\n\n" +
	"## Transcription\n%s\n"

// Clip is mono 16-bit PCM.
type Clip struct {
	Samples    []int16
	SampleRate int
}

// Recognizer turns speech into text.
type Recognizer interface {
	Name() string
	Transcribe(ctx context.Context, clip Clip) (string, error)
}

// Converter decodes WAV input and hands it to a Recognizer.
type Converter struct {
	Recognizer Recognizer
	Logger     *slog.Logger
}

// ToMarkdown implements the dispatcher's converter contract.
func (c *Converter) ToMarkdown(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errs.ErrEmptyInput
	}
	if c.Recognizer == nil {
		return "", &errs.UnsupportedFormatError{MIME: "audio/wav", Reason: "no speech recognizer configured"}
	}

	clip, err := Decode(data)
	if err != nil {
		return "", err
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("transcribing audio", "samples", len(clip.Samples), "sample_rate", clip.SampleRate)

	text, err := c.Recognizer.Transcribe(ctx, clip)
	if err != nil {
		return "", fmt.Errorf("transcribe with %s: %w", c.Recognizer.Name(), err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = NoContent
	}
	return fmt.Sprintf(reportTemplate, clip.SampleRate, c.Recognizer.Name(), text), nil
}

// Decode reads a WAV file and folds it to mono 16-bit samples.
func Decode(data []byte) (Clip, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return Clip{}, &errs.DocumentParseError{Part: "wav", Err: errors.New("not a valid WAV file")}
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Clip{}, &errs.DocumentParseError{Part: "wav", Err: err}
	}
	return downmix(buf, int(d.BitDepth)), nil
}

func downmix(buf *goaudio.IntBuffer, bitDepth int) Clip {
	channels := 1
	rate := 0
	if buf.Format != nil {
		channels = max(buf.Format.NumChannels, 1)
		rate = buf.Format.SampleRate
	}

	frames := len(buf.Data) / channels
	out := make([]int16, frames)
	for i := range frames {
		sum := 0
		for ch := range channels {
			sum += to16(buf.Data[i*channels+ch], bitDepth)
		}
		out[i] = int16(sum / channels)
	}
	return Clip{Samples: out, SampleRate: rate}
}

// to16 rescales one sample to the signed 16-bit range. 8-bit WAV data is
// unsigned.
func to16(v, bitDepth int) int {
	switch {
	case bitDepth == 8:
		return (v - 128) << 8
	case bitDepth > 16:
		return v >> (bitDepth - 16)
	default:
		return v
	}
}
