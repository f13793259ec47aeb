package domain

import "errors"

// Таксономия ошибок: NotFound фатален для сессии, Forbidden блокирует
// конкретную мутацию, Conflict — нарушение инвариантов членства,
// Transport всегда retryable.
var (
	ErrNotFound  = errors.New("room not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrTransport = errors.New("transport error")
)

var (
	ErrOwnerRemoval    = errors.New("cannot remove the room owner")
	ErrOwnerMismatch   = errors.New("ownership invariant violated")
	ErrDuplicateMember = errors.New("duplicate member")
)
