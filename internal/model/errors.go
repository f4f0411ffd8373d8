package model

import "errors"

// Domain sentinel errors shared by the repositories and the realtime core
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTradeNotFound       = errors.New("trade not found")
	ErrTradeAlreadySettled = errors.New("trade already settled")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrAuthFailed          = errors.New("authentication failed")
)
