package session

import (
	"context"
	"errors"

	"github.com/mreilly/povox/internal/reply"
)

// ErrPipelineUnavailable indicates runtime capture/backend wiring is missing.
var ErrPipelineUnavailable = errors.New("audio capture and lookup backend not wired")

// Recorder abstracts the capture operations needed by the controller.
type Recorder interface {
	Start(context.Context) error
	Stop(context.Context) ([]byte, error)
}

// Backend abstracts the recognition/lookup backend operations.
type Backend interface {
	Submit(context.Context, []byte) (reply.Reply, error)
	FeedbackAudio(context.Context) ([]byte, error)
	Reset(context.Context) error
}

// Player renders a synthesized-speech blob. Best effort.
type Player interface {
	Play(context.Context, []byte) error
}

// PlayerFunc adapts a function to the Player interface.
type PlayerFunc func(context.Context, []byte) error

func (f PlayerFunc) Play(ctx context.Context, blob []byte) error {
	return f(ctx, blob)
}

// placeholderRecorder preserves controller flow when no recorder is wired.
type placeholderRecorder struct{}

func (placeholderRecorder) Start(context.Context) error {
	return nil
}

func (placeholderRecorder) Stop(context.Context) ([]byte, error) {
	return nil, ErrPipelineUnavailable
}

// placeholderBackend preserves controller flow when no backend is wired.
type placeholderBackend struct{}

func (placeholderBackend) Submit(context.Context, []byte) (reply.Reply, error) {
	return reply.Reply{}, ErrPipelineUnavailable
}

func (placeholderBackend) FeedbackAudio(context.Context) ([]byte, error) {
	return nil, ErrPipelineUnavailable
}

func (placeholderBackend) Reset(context.Context) error {
	return nil
}

// noopPlayer swallows playback when no audio sink is wired.
type noopPlayer struct{}

func (noopPlayer) Play(context.Context, []byte) error { return nil }
