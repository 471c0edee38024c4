package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle                 State = "idle"
	StateRecording            State = "recording"
	StateProcessing           State = "processing"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StatePresenting           State = "presenting"
	StateErroring             State = "erroring"
)

const (
	EventStart   Event = "start"
	EventStop    Event = "stop"
	EventPresent Event = "present"
	EventConfirm Event = "confirm"
	EventRetry   Event = "retry"
	EventNoVoice Event = "no_voice"
	EventIgnore  Event = "ignore"
	EventFail    Event = "fail"
	EventReset   Event = "reset"
)

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateErroring, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRecording, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRecording:
		switch event {
		case EventStop:
			return StateProcessing, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateProcessing:
		switch event {
		case EventPresent:
			return StatePresenting, nil
		case EventConfirm:
			return StateAwaitingConfirmation, nil
		case EventRetry, EventNoVoice, EventIgnore:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StatePresenting, StateAwaitingConfirmation, StateErroring:
		switch event {
		case EventStart:
			return StateRecording, nil
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
