package model

import "errors"

var (
	ErrInvokeFailed    = errors.New("model invocation failed")
	ErrEmptyResponse   = errors.New("model returned empty response")
	ErrUnknownProvider = errors.New("unknown model provider")
	ErrUnknownTier     = errors.New("unknown model tier")
)
