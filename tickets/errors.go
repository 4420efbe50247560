package tickets

import "errors"

// Rejections are split along the spec'd taxonomy so the front-end can
// phrase re-prompts correctly: validation (malformed input), permission
// (wrong actor), state (action not valid for the ticket's status).

type validationError struct {
	message string
}

func NewValidationError(message string) error {
	return &validationError{message: message}
}

func (err *validationError) Error() string {
	return err.message
}

func IsValidationError(err error) bool {
	var validationErr *validationError
	return errors.As(err, &validationErr)
}

type permissionError struct {
	message string
}

func NewPermissionError(message string) error {
	return &permissionError{message: message}
}

func (err *permissionError) Error() string {
	return err.message
}

func IsPermissionError(err error) bool {
	var permissionErr *permissionError
	return errors.As(err, &permissionErr)
}

type stateError struct {
	message string
}

func NewStateError(message string) error {
	return &stateError{message: message}
}

func (err *stateError) Error() string {
	return err.message
}

func IsStateError(err error) bool {
	var stateErr *stateError
	return errors.As(err, &stateErr)
}

type ticketNotFoundError struct {
}

func NewTicketNotFoundError() error {
	return &ticketNotFoundError{}
}

func (err *ticketNotFoundError) Error() string {
	return "ticket not found"
}

func IsTicketNotFoundError(err error) bool {
	var notFoundErr *ticketNotFoundError
	return errors.As(err, &notFoundErr)
}
