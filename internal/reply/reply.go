// Package reply models backend replies and classifies them into outcomes.
package reply

// Sentinel message values the backend uses on failed turns.
const (
	MessageRetryRequested    = "Retry requested"
	MessageNoVoiceRecognized = "No voice recognized"
)

// Reply is the wire-level backend response to an audio upload. Fields are
// optional and not mutually exclusive; Interpret resolves the overlap.
type Reply struct {
	DetectedLang       string  `json:"detected_lang,omitempty"`
	PONumber           *string `json:"po_number"`
	Details            string  `json:"details,omitempty"`
	POExists           bool    `json:"po_exists,omitempty"`
	ShowConfirmOptions bool    `json:"show_confirm_options,omitempty"`
	Message            string  `json:"message,omitempty"`
}

// Kind tags the classified meaning of a backend reply.
type Kind string

const (
	KindPOFound               Kind = "po_found"
	KindPONotFound            Kind = "po_not_found"
	KindConfirmationRequested Kind = "confirmation_requested"
	KindRetryRequested        Kind = "retry_requested"
	KindNoVoiceRecognized     Kind = "no_voice_recognized"
	KindUnrecognized          Kind = "unrecognized"
)

// Outcome is the classified reply, independent of its wire shape. Details
// carries the raw blob for the PO kinds; callers parse it exactly once.
type Outcome struct {
	Kind     Kind
	PONumber string
	Details  string
}

// Interpret classifies a reply into exactly one outcome. The priority order
// below is a hard contract: details beats confirmation beats the sentinel
// messages, and anything else is an unrecognized no-op.
func Interpret(r Reply) Outcome {
	poNumber := ""
	if r.PONumber != nil {
		poNumber = *r.PONumber
	}

	switch {
	case r.Details != "":
		kind := KindPONotFound
		if r.POExists {
			kind = KindPOFound
		}
		return Outcome{Kind: kind, PONumber: poNumber, Details: r.Details}
	case r.ShowConfirmOptions:
		return Outcome{Kind: KindConfirmationRequested, PONumber: poNumber}
	case r.Message == MessageRetryRequested:
		return Outcome{Kind: KindRetryRequested, PONumber: poNumber}
	case r.Message == MessageNoVoiceRecognized:
		return Outcome{Kind: KindNoVoiceRecognized}
	default:
		return Outcome{Kind: KindUnrecognized}
	}
}

// SuppressLocaleUpdate reports whether the detected language on this reply
// must be ignored: a failed-recognition retry (null PO number plus the retry
// sentinel) carries a language guess too garbled to trust.
func SuppressLocaleUpdate(r Reply) bool {
	return r.PONumber == nil && r.Message == MessageRetryRequested
}
