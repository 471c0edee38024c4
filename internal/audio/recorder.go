package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

var (
	// ErrNoActiveSession indicates Stop without a prior successful Start.
	ErrNoActiveSession = errors.New("no active capture session")
	// ErrSessionActive indicates Start while a capture session is open.
	ErrSessionActive = errors.New("capture session already open")
	// ErrCaptureUnavailable indicates device or permission failure.
	ErrCaptureUnavailable = errors.New("audio capture unavailable")
)

// captureSession is the recorder-facing subset of Capture behavior.
type captureSession interface {
	Stop() error
	RawPCM() []byte
	BytesCaptured() int64
	Device() Device
}

// Recorder owns at most one capture session at a time and hands back the
// finished utterance as an upload-ready WAV blob.
type Recorder struct {
	input    string
	fallback string
	logger   *slog.Logger

	open func(context.Context) (captureSession, error)

	mu      sync.Mutex
	session captureSession
}

// NewRecorder constructs a recorder bound to the configured input preferences.
func NewRecorder(input string, fallback string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Recorder{input: input, fallback: fallback, logger: logger}
	r.open = r.openPulse
	return r
}

// openPulse resolves device selection and starts a live Pulse capture.
func (r *Recorder) openPulse(ctx context.Context) (captureSession, error) {
	selection, err := SelectDevice(ctx, r.input, r.fallback)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	if selection.Warning != "" {
		r.logger.Warn(selection.Warning)
	}

	capture, err := StartCapture(ctx, selection.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	return capture, nil
}

// Start opens a capture session. At most one session may be open.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return ErrSessionActive
	}

	session, err := r.open(ctx)
	if err != nil {
		return err
	}
	r.session = session
	return nil
}

// Stop closes the open session and returns the captured audio as WAV bytes.
func (r *Recorder) Stop(_ context.Context) ([]byte, error) {
	r.mu.Lock()
	session := r.session
	r.session = nil
	r.mu.Unlock()

	if session == nil {
		return nil, ErrNoActiveSession
	}

	if err := session.Stop(); err != nil {
		return nil, fmt.Errorf("stop capture: %w", err)
	}

	pcm := session.RawPCM()
	r.logger.Debug("capture stopped",
		"device", session.Device().ID,
		"bytes_captured", session.BytesCaptured(),
	)
	return EncodeWAV(pcm, captureSampleRate, captureChannels), nil
}

// Cancel discards any open session without returning audio.
func (r *Recorder) Cancel(_ context.Context) error {
	r.mu.Lock()
	session := r.session
	r.session = nil
	r.mu.Unlock()

	if session == nil {
		return nil
	}
	return session.Stop()
}
