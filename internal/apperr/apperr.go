// Package apperr задаёт таксономию ошибок сервиса и их классификацию.
package apperr

import (
	"errors"
	"fmt"
)

// Kind: вид ошибки. Строковые коды удобны для отладки и сериализации в JSON.
type Kind string

const (
	// KindUnauthenticated: у запроса нет распознаваемого участника.
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	// KindForbidden: проверка роли или владения не пройдена.
	KindForbidden Kind = "FORBIDDEN"
	// KindNotFound: ресурс не найден или массовая операция не затронула ни одной записи.
	KindNotFound Kind = "NOT_FOUND"
	// KindInvalidInput: входные данные некорректны.
	KindInvalidInput Kind = "INVALID_INPUT"
	// KindConflict: пожертвование не в требуемом состоянии или конкурирующий запрос успел раньше.
	KindConflict Kind = "CONFLICT"
	// KindUpstream: отказ хранилища или внешнего сервиса.
	KindUpstream Kind = "UPSTREAM"
)

// Error: ошибка сервиса с видом, операцией и сообщением для клиента.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Op != "":
		return e.Op + ": " + e.Message
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New создаёт ошибку заданного вида.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf создаёт ошибку заданного вида с форматированным сообщением.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap оборачивает причину в ошибку заданного вида.
func Wrap(kind Kind, op string, err error, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// Upstream оборачивает отказ хранилища.
func Upstream(op string, err error) *Error {
	return Wrap(KindUpstream, op, err, "storage failure")
}

// KindOf возвращает вид ошибки. Неклассифицированные ошибки относятся к KindUpstream.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// Is сообщает, что ошибка относится к указанному виду.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf возвращает сообщение для клиента.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal error"
}
