// Package session coordinates the voice lookup conversation: state
// transitions, reply application, and side-effect dispatch.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mreilly/povox/internal/fsm"
	"github.com/mreilly/povox/internal/i18n"
	"github.com/mreilly/povox/internal/ipc"
	"github.com/mreilly/povox/internal/podetail"
	"github.com/mreilly/povox/internal/reply"
)

// Snapshot is a read-only view of the conversation surfaced to callers.
type Snapshot struct {
	State    fsm.State
	Locale   string
	Message  string
	PONumber string
	Details  *podetail.Record
}

// Controller owns one conversation: its state, its session context, and the
// side effects each turn triggers.
type Controller struct {
	logger   *slog.Logger
	recorder Recorder
	backend  Backend
	player   Player

	mu    sync.Mutex
	state fsm.State
	sess  Context
	turn  uint64
}

// NewController constructs a conversation controller with safe default
// fallbacks for missing collaborators.
func NewController(
	logger *slog.Logger,
	recorder Recorder,
	backend Backend,
	player Player,
	defaultLocale string,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if recorder == nil {
		recorder = placeholderRecorder{}
	}
	if backend == nil {
		backend = placeholderBackend{}
	}
	if player == nil {
		player = noopPlayer{}
	}
	if defaultLocale == "" {
		defaultLocale = i18n.DefaultLocale
	}

	c := &Controller{
		logger:   logger.With("session_id", uuid.NewString()),
		recorder: recorder,
		backend:  backend,
		player:   player,
		state:    fsm.StateIdle,
		sess:     Context{Locale: defaultLocale},
	}
	c.setStatusLocked(i18n.Resolve(defaultLocale), i18n.KeyReady)
	return c
}

// Status returns the current conversation snapshot.
func (c *Controller) Status() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:    c.state,
		Locale:   c.sess.Locale,
		Message:  c.sess.Status,
		PONumber: c.sess.PONumber,
		Details:  c.sess.Details,
	}
}

// StartRecording begins a new turn. Valid only from idle or the terminal
// display states; elsewhere the transition error is returned unchanged.
func (c *Controller) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.transitionLocked(fsm.EventStart); err != nil {
		return err
	}

	if err := c.recorder.Start(ctx); err != nil {
		c.failLocked("start capture", err)
		return err
	}

	// A new turn invalidates any feedback audio still in flight.
	c.turn++
	c.setStatusLocked(i18n.Resolve(c.sess.Locale), i18n.KeyRecording)
	c.logger.Info("recording started", "turn", c.turn)
	return nil
}

// StopRecording ends capture, submits the utterance, and applies the
// backend's reply. Capture stop strictly precedes submission.
func (c *Controller) StopRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.transitionLocked(fsm.EventStop); err != nil {
		return err
	}
	c.setStatusLocked(i18n.Resolve(c.sess.Locale), i18n.KeyProcessing)

	audio, err := c.recorder.Stop(ctx)
	if err != nil {
		c.failLocked("stop capture", err)
		return err
	}

	rep, err := c.backend.Submit(ctx, audio)
	if err != nil {
		c.failLocked("submit audio", err)
		return err
	}

	return c.applyReplyLocked(rep)
}

// applyReplyLocked classifies a backend reply and advances the conversation.
// The locale write happens before any status message resolution for the
// turn; a failed-recognition retry suppresses the write entirely.
func (c *Controller) applyReplyLocked(rep reply.Reply) error {
	outcome := reply.Interpret(rep)

	if rep.DetectedLang != "" && !reply.SuppressLocaleUpdate(rep) {
		c.sess.Locale = rep.DetectedLang
	}
	bundle := i18n.Resolve(c.sess.Locale)

	switch outcome.Kind {
	case reply.KindPOFound, reply.KindPONotFound:
		record, err := podetail.Parse(outcome.Details)
		if err != nil {
			c.failLocked("parse PO details", err)
			return err
		}
		_ = c.transitionLocked(fsm.EventPresent)
		c.sess.PONumber = outcome.PONumber
		c.sess.Details = &record
		statusKey := i18n.KeyNotFound
		if outcome.Kind == reply.KindPOFound {
			statusKey = i18n.KeyFoundPO
		}
		c.setStatusLocked(bundle, statusKey, outcome.PONumber)
		c.requestFeedbackLocked()

	case reply.KindConfirmationRequested:
		_ = c.transitionLocked(fsm.EventConfirm)
		c.sess.PONumber = outcome.PONumber
		c.setStatusLocked(bundle, i18n.KeyConfirmPrompt, outcome.PONumber)
		c.requestFeedbackLocked()

	case reply.KindRetryRequested:
		_ = c.transitionLocked(fsm.EventRetry)
		c.resetLocked()
		c.setStatusLocked(bundle, i18n.KeyRetry)
		c.requestFeedbackLocked()

	case reply.KindNoVoiceRecognized:
		_ = c.transitionLocked(fsm.EventNoVoice)
		c.setStatusLocked(bundle, i18n.KeyNotHeard)
		c.requestFeedbackLocked()

	case reply.KindUnrecognized:
		_ = c.transitionLocked(fsm.EventIgnore)
		c.logger.Warn("unrecognized backend reply shape",
			"has_details", rep.Details != "",
			"has_po_number", rep.PONumber != nil,
			"show_confirm_options", rep.ShowConfirmOptions,
			"message", rep.Message,
		)
	}

	c.logger.Info("reply applied", "outcome", string(outcome.Kind), "state", string(c.state))
	return nil
}

// Reset performs a full local reset and notifies the backend best-effort.
func (c *Controller) Reset(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.transitionLocked(fsm.EventReset); err != nil {
		return err
	}
	c.resetLocked()
	c.setStatusLocked(i18n.Resolve(c.sess.Locale), i18n.KeyReady)
	return nil
}

// resetLocked clears turn data locally and fires the detached backend
// reset. Remote failure never blocks or reverses the local clearing.
func (c *Controller) resetLocked() {
	c.sess.clearData()
	c.turn++

	go func() {
		if err := c.backend.Reset(context.Background()); err != nil {
			c.logger.Warn("backend reset failed", "error", err.Error())
		}
	}()
}

// requestFeedbackLocked fetches the turn's synthesized speech in a detached
// task stamped with the turn it belongs to. Stale deliveries are discarded;
// failures are logged and never surface.
func (c *Controller) requestFeedbackLocked() {
	turn := c.turn
	c.sess.PendingAudio = true

	go func() {
		blob, err := c.backend.FeedbackAudio(context.Background())

		c.mu.Lock()
		if turn != c.turn {
			c.mu.Unlock()
			c.logger.Debug("discarding stale feedback audio", "turn", turn)
			return
		}
		c.sess.PendingAudio = false
		c.mu.Unlock()

		if err != nil {
			c.logger.Warn("fetch feedback audio failed", "turn", turn, "error", err.Error())
			return
		}
		if err := c.player.Play(context.Background(), blob); err != nil {
			c.logger.Warn("play feedback audio failed", "turn", turn, "error", err.Error())
		}
	}()
}

// failLocked moves the conversation to erroring with the localized error status.
func (c *Controller) failLocked(operation string, err error) {
	_ = c.transitionLocked(fsm.EventFail)
	c.setStatusLocked(i18n.Resolve(c.sess.Locale), i18n.KeyError)
	c.logger.Error(operation+" failed", "error", err.Error())
}

// transitionLocked applies one FSM event to the controller state.
func (c *Controller) transitionLocked(event fsm.Event) error {
	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// setStatusLocked resolves and stores the turn's status message. A render
// contract violation is a programmer error: it is logged loudly and the raw
// key stands in so the conversation keeps moving.
func (c *Controller) setStatusLocked(bundle i18n.Bundle, key i18n.Key, args ...string) {
	message, err := bundle.Render(key, args...)
	if err != nil {
		c.logger.Error("render status message failed", "key", string(key), "error", err.Error())
		message = string(key)
	}
	c.sess.StatusKey = key
	c.sess.Status = message
}

// Handle serves IPC commands for the running agent.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case "status":
		return c.respond(nil)
	case "toggle":
		if c.Status().State == fsm.StateRecording {
			return c.respond(c.StopRecording(ctx))
		}
		return c.respond(c.StartRecording(ctx))
	case "reset":
		return c.respond(c.Reset(ctx))
	default:
		snapshot := c.Status()
		return ipc.Response{
			OK:    false,
			State: string(snapshot.State),
			Error: fmt.Sprintf("unknown command: %s", req.Command),
		}
	}
}

// respond renders the current snapshot as an IPC response.
func (c *Controller) respond(err error) ipc.Response {
	snapshot := c.Status()
	resp := ipc.Response{
		OK:       err == nil,
		State:    string(snapshot.State),
		Locale:   snapshot.Locale,
		Message:  snapshot.Message,
		PONumber: snapshot.PONumber,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	if snapshot.State == fsm.StatePresenting && snapshot.Details != nil {
		resp.Details = snapshot.Details.Table()
	}
	return resp
}
