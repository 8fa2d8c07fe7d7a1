package transport

import "fmt"

// Kind classifies a transport failure.
type Kind string

const (
	KindNetwork Kind = "network"
	KindServer  Kind = "server"
	KindTimeout Kind = "timeout"
	KindBusy    Kind = "busy"
)

// Error is returned by every Client call that did not get a 2xx reply.
type Error struct {
	Kind   Kind
	Detail string
	Status int // HTTP status, KindServer only
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error (%d): %s", e.Kind, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Detail)
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrBusy) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Detail == "" && t.Status == 0
}

// Sentinels for errors.Is matching by kind.
var (
	ErrNetwork = &Error{Kind: KindNetwork}
	ErrServer  = &Error{Kind: KindServer}
	ErrTimeout = &Error{Kind: KindTimeout}
	ErrBusy    = &Error{Kind: KindBusy}
)
