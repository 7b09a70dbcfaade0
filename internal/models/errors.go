package models

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind: класс ошибки, по нему OrderManager выбирает политику ретраев.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindClockDrift
	KindRateLimit
	KindTransient
	KindRejection
	KindNotFound
	KindDuplicate
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindClockDrift:
		return "clock_drift"
	case KindRateLimit:
		return "rate_limit"
	case KindTransient:
		return "transient"
	case KindRejection:
		return "rejection"
	case KindNotFound:
		return "not_found"
	case KindDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Error: классифицированная ошибка. Code: код биржи или HTTP статус, если есть.
type Error struct {
	Kind ErrorKind
	Code int
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := e.Kind.String() + ": " + e.Msg
	if e.Code != 0 {
		s = fmt.Sprintf("%s (code=%d)", s, e.Code)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает sentinel-ошибки по виду и тексту.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == e.Msg && t.Code == e.Code
}

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func WrapKind(kind ErrorKind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

var (
	ErrDuplicateStrategy = &Error{Kind: KindDuplicate, Msg: "strategy already registered"}
	ErrStrategyNotFound  = &Error{Kind: KindNotFound, Msg: "strategy not found"}
	ErrOrderNotFound     = &Error{Kind: KindNotFound, Msg: "order not found"}
)

// KindOf достаёт класс из цепочки обёрток.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Retryable: ошибки, которые OrderManager может повторить.
func Retryable(kind ErrorKind) bool {
	return kind == KindClockDrift || kind == KindRateLimit || kind == KindTransient
}
