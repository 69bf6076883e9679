package domain

import "errors"

var (
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrLocationNotFound   = errors.New("location not found")
	ErrInvalidUpdate      = errors.New("invalid status update")
	ErrGatewayUnavailable = errors.New("persistence gateway unavailable")
	ErrSessionClosed      = errors.New("session is closed")
	ErrSessionBufferFull  = errors.New("session send buffer full")
)
