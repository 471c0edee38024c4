// Package i18n resolves locale tags to status message bundles.
package i18n

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
)

// Key identifies one message in a bundle.
type Key string

const (
	KeyRecording     Key = "recording"
	KeyProcessing    Key = "processing"
	KeyError         Key = "error"
	KeyReady         Key = "ready"
	KeyRetry         Key = "retry"
	KeyNotHeard      Key = "notHeard"
	KeyFoundPO       Key = "foundPO"
	KeyNotFound      Key = "notFound"
	KeyConfirmPrompt Key = "confirmPrompt"
	KeyReset         Key = "reset"
	KeyRecordBtn     Key = "recordBtn"
	KeyStopBtn       Key = "stopBtn"
)

// ErrInvalidTemplateUse indicates a template key rendered without its
// argument, or an argument passed to a literal key. Programmer error.
var ErrInvalidTemplateUse = errors.New("invalid template use")

// Bundle is an immutable message table for one locale.
type Bundle struct {
	tag       language.Tag
	literals  map[Key]string
	templates map[Key]func(po string) string
}

// Tag returns the canonical locale tag this bundle serves.
func (b Bundle) Tag() language.Tag {
	return b.tag
}

// Render resolves key to its message, applying the PO-number argument for
// template keys. Unknown keys fail the same contract as misused templates.
func (b Bundle) Render(key Key, args ...string) (string, error) {
	if text, ok := b.literals[key]; ok {
		if len(args) != 0 {
			return "", fmt.Errorf("%w: key %q takes no argument", ErrInvalidTemplateUse, key)
		}
		return text, nil
	}
	if tmpl, ok := b.templates[key]; ok {
		if len(args) != 1 {
			return "", fmt.Errorf("%w: key %q requires exactly one argument", ErrInvalidTemplateUse, key)
		}
		return tmpl(args[0]), nil
	}
	return "", fmt.Errorf("%w: unknown key %q", ErrInvalidTemplateUse, key)
}

var english = Bundle{
	tag: language.MustParse("en-US"),
	literals: map[Key]string{
		KeyRecording:  "Recording...",
		KeyProcessing: "Processing audio...",
		KeyError:      "Error processing audio. Please try again.",
		KeyReady:      "Ready to record",
		KeyRetry:      "Let's try again. Please record PO number.",
		KeyNotHeard:   "I couldn't hear anything. Please try again.",
		KeyReset:      "Reset",
		KeyRecordBtn:  "Record Voice Input",
		KeyStopBtn:    "Stop Recording",
	},
	templates: map[Key]func(string) string{
		KeyFoundPO:  func(po string) string { return fmt.Sprintf("Found PO: %s", po) },
		KeyNotFound: func(po string) string { return fmt.Sprintf("PO %s not found", po) },
		KeyConfirmPrompt: func(po string) string {
			return fmt.Sprintf("Detected: %s. Please say \"yes\" to confirm or \"no\" to try again.", po)
		},
	},
}

var spanish = Bundle{
	tag: language.MustParse("es-US"),
	literals: map[Key]string{
		KeyRecording:  "Grabando...",
		KeyProcessing: "Procesando audio...",
		KeyError:      "Error al procesar el audio. Por favor, inténtalo de nuevo.",
		KeyReady:      "Listo para grabar",
		KeyRetry:      "Intentémoslo de nuevo. Por favor graba el número de orden.",
		KeyNotHeard:   "No escuché nada. Por favor, inténtalo de nuevo.",
		KeyReset:      "Reiniciar",
		KeyRecordBtn:  "Grabar entrada de voz",
		KeyStopBtn:    "Detener grabación",
	},
	templates: map[Key]func(string) string{
		KeyFoundPO:  func(po string) string { return fmt.Sprintf("Orden de compra encontrada: %s", po) },
		KeyNotFound: func(po string) string { return fmt.Sprintf("Orden %s no encontrada", po) },
		KeyConfirmPrompt: func(po string) string {
			return fmt.Sprintf("¿Dijiste %s? Di \"sí\" para confirmar o \"no\" para intentarlo de nuevo.", po)
		},
	},
}

// bundles is ordered so the matcher's first entry is the default locale.
var bundles = []Bundle{english, spanish}

var matcher = language.NewMatcher(func() []language.Tag {
	tags := make([]language.Tag, 0, len(bundles))
	for _, b := range bundles {
		tags = append(tags, b.tag)
	}
	return tags
}())

// DefaultLocale is the tag unknown locales resolve to.
const DefaultLocale = "en-US"

// Resolve maps an arbitrary locale tag to the closest known bundle. It is
// total: unparsable or unknown tags fall back to the default bundle.
func Resolve(locale string) Bundle {
	tag, err := language.Parse(locale)
	if err != nil {
		return bundles[0]
	}
	_, index, _ := matcher.Match(tag)
	return bundles[index]
}
