package models

import "fmt"

// ErrorKind is the closed set of machine-readable failure tags every port and
// engine operation may return. Game engines and the Store Port never panic or
// return bare errors across a component boundary; they return a Failure.
type ErrorKind string

const (
	ErrSessionNotFound     ErrorKind = "SessionNotFound"
	ErrParticipantNotFound ErrorKind = "ParticipantNotFound"
	ErrMissingSessionScope ErrorKind = "MissingSessionScope"

	ErrInvalidState        ErrorKind = "InvalidState"
	ErrNotInProposedState  ErrorKind = "NotInProposedState"
	ErrAlreadyProcessed    ErrorKind = "AlreadyProcessed"

	ErrInsufficientFunds     ErrorKind = "InsufficientFunds"
	ErrInsufficientInventory ErrorKind = "InsufficientInventory"
	ErrProductionLimitReached ErrorKind = "ProductionLimitReached"

	ErrInvalidPrice       ErrorKind = "InvalidPrice"
	ErrInvalidShape       ErrorKind = "InvalidShape"
	ErrInvalidQuantity    ErrorKind = "InvalidQuantity"
	ErrInvalidOrderIndex  ErrorKind = "InvalidOrderIndex"

	ErrCommunicationLevelViolation ErrorKind = "CommunicationLevelViolation"
	ErrSelfAcceptForbidden         ErrorKind = "SelfAcceptForbidden"
	ErrSelfOfferForbidden          ErrorKind = "SelfOfferForbidden"

	ErrLLMError       ErrorKind = "LLMError"
	ErrStoreError     ErrorKind = "StoreError"
	ErrTransportError ErrorKind = "TransportError"
)

// Failure is the error half of every operation's discriminated-union result.
type Failure struct {
	Kind    ErrorKind
	Message string
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// NewFailure builds a Failure with a formatted message.
func NewFailure(kind ErrorKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a *Failure of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	f, ok := err.(*Failure)
	return ok && f != nil && f.Kind == kind
}
