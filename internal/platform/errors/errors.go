package apperrors

import "errors"

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrNotFound               = errors.New("not found")
	ErrConfiguration          = errors.New("configuration error")
	ErrAutomationUnavailable  = errors.New("automation unavailable")
	ErrClassifierUnavailable  = errors.New("classifier unavailable")
	ErrSessionAlreadyFinished = errors.New("session already stopped")
)
