// Package identity signs users up and in and maps provider failures to the
// fixed set of messages shown to them.
package identity

import (
	"errors"
	"fmt"
)

// Code identifies an identity provider failure.
type Code string

const (
	CodeWrongPassword = Code("wrong-password")
	CodeUserNotFound  = Code("user-not-found")
	CodeEmailInUse    = Code("email-already-in-use")
	CodeWeakPassword  = Code("weak-password")
	CodeInvalidEmail  = Code("invalid-email")
	CodeMissingFields = Code("missing-fields")
	CodeUnknown       = Code("unknown")
)

// GenericMessage is shown for any failure without a specific message.
const GenericMessage = "Ocorreu um erro. Tente novamente."

var messages = map[Code]string{
	CodeWrongPassword: "Senha incorreta.",
	CodeUserNotFound:  "Usuário não encontrado.",
	CodeEmailInUse:    "Este e-mail já está em uso.",
	CodeWeakPassword:  "A senha deve ter pelo menos 6 caracteres.",
	CodeInvalidEmail:  "E-mail inválido.",
	CodeMissingFields: "Todos os campos são obrigatórios.",
}

// Error is a provider failure carrying its code.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("identity: %s: %v", e.Code, e.Err)
	}
	return "identity: " + string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Code == e.Code
}

var (
	ErrWrongPassword = &Error{Code: CodeWrongPassword}
	ErrUserNotFound  = &Error{Code: CodeUserNotFound}
	ErrEmailInUse    = &Error{Code: CodeEmailInUse}
	ErrWeakPassword  = &Error{Code: CodeWeakPassword}
	ErrInvalidEmail  = &Error{Code: CodeInvalidEmail}
	ErrMissingFields = &Error{Code: CodeMissingFields}
)

// CodeOf returns the code of err, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// Message maps err to its user-facing message. Unrecognized errors get the
// generic message; nil gets "".
func Message(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := messages[CodeOf(err)]; ok {
		return msg
	}
	return GenericMessage
}
