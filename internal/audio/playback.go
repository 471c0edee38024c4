package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jfreymuth/pulse"
)

// Player renders synthesized-speech blobs through Pulse. Playback is best
// effort: callers log failures and move on.
type Player struct {
	enabled bool
	logger  *slog.Logger
}

// NewPlayer constructs a feedback-audio player.
func NewPlayer(enabled bool, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Player{enabled: enabled, logger: logger}
}

// Play decodes and renders one audio blob, blocking until drained. Blobs
// that are not WAV are tolerated and treated as raw capture-format PCM.
func (p *Player) Play(ctx context.Context, blob []byte) error {
	if !p.enabled || len(blob) == 0 {
		return nil
	}

	pcm, sampleRate, channels, err := DecodeWAV(blob)
	if errors.Is(err, ErrNotWAV) {
		p.logger.Debug("feedback audio is not WAV; playing as raw PCM")
		pcm, sampleRate, channels = blob, captureSampleRate, captureChannels
	} else if err != nil {
		return fmt.Errorf("decode feedback audio: %w", err)
	}

	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[2*i : 2*i+2]))
	}

	return playSamples(ctx, samples, sampleRate, channels)
}

// playSamples streams s16 samples to a Pulse playback stream and drains it.
func playSamples(ctx context.Context, samples []int16, sampleRate int, channels int) error {
	if len(samples) == 0 {
		return nil
	}

	client, err := pulse.NewClient(
		pulse.ClientApplicationName("povox"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if ctx.Err() != nil {
			return 0, pulse.EndOfData
		}
		if cursor >= len(samples) {
			return 0, pulse.EndOfData
		}

		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	opts := []pulse.PlaybackOption{
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackMediaName("povox voice feedback"),
	}
	if channels >= 2 {
		opts = append(opts, pulse.PlaybackStereo)
	} else {
		opts = append(opts, pulse.PlaybackMono)
	}

	stream, err := client.NewPlayback(reader, opts...)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play feedback stream: %w", err)
	}

	return nil
}
