package flow

import "errors"

var (
	ErrFlowNotFound      = errors.New("flow: session not found or expired")
	ErrInvalidFlowState  = errors.New("flow: action is not allowed in the current step")
	ErrAttemptsExhausted = errors.New("flow: too many failed attempts")
	ErrFailedToEncode    = errors.New("flow: failed to encode session")
)
