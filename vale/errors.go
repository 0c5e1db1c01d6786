package vale

import (
	"errors"
	"fmt"
)

// Kind classifies a failure talking to the Vale CLI or its release server.
type Kind int

const (
	KindIO Kind = iota + 1
	KindArchive
	KindHTTP
	KindJSON
	KindUTF8
	KindSemVer
	KindMsg
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindArchive:
		return "archive"
	case KindHTTP:
		return "http"
	case KindJSON:
		return "json"
	case KindUTF8:
		return "utf8"
	case KindSemVer:
		return "semver"
	case KindMsg:
		return "vale"
	default:
		return "unknown"
	}
}

// ErrNotInstalled is returned when neither a managed nor a system copy of
// Vale can be found.
var ErrNotInstalled = errors.New("Vale is not installed.")

// Error is returned by every Manager operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == KindMsg {
		// Vale's own text is shown to users verbatim.
		return e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// msgError wraps text produced by Vale itself, usually stderr.
func msgError(op, text string) *Error {
	return &Error{Kind: KindMsg, Op: op, Err: errors.New(text)}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
