package scoring

import (
	"errors"
	"fmt"
)

// Kind classifies a scoring failure.
type Kind string

// Failure kinds.
const (
	// KindTransport: the request could not be sent or timed out.
	KindTransport Kind = "transport"
	// KindDecode: the response body is not JSON.
	KindDecode Kind = "decode"
	// KindStatus: the service answered with a non-200 status.
	KindStatus Kind = "status"
	// KindContract: JSON parsed but the expected key is missing or invalid.
	KindContract Kind = "contract"
	// KindInvalidRecord: the record was rejected locally before sending.
	KindInvalidRecord Kind = "invalid_record"
)

// Operations reported in Error.Op.
const (
	OpClassify    = "classify"
	OpProbability = "probability"
)

// Error is the typed failure returned by a Scorer.
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int    // 0 when no response was received
	Body       string // raw or compacted response body
	Msg        string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the operator-facing text for the failure.
func (e *Error) Message() string {
	switch e.Kind {
	case KindDecode:
		return fmt.Sprintf("Erreur lors de l'appel à l'API : %d - Réponse non-JSON reçue", e.StatusCode)
	case KindStatus:
		return fmt.Sprintf("Erreur lors de l'appel à l'API : %d - %s", e.StatusCode, e.Body)
	case KindContract:
		if e.Op == OpProbability {
			return "La probabilité n'est pas disponible dans la réponse de l'API."
		}
		return "La prédiction n'est pas disponible dans la réponse de l'API."
	case KindTransport:
		return "Erreur lors de l'appel à l'API : service injoignable."
	case KindInvalidRecord:
		return "Les données du client ne correspondent pas au modèle."
	default:
		return e.Error()
	}
}

// KindOf returns the Kind of err when it is or wraps an *Error.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}
