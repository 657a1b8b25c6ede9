package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidTag     = errors.New("tag not allowed")
	ErrCommentTooLong = errors.New("comment too long")
	ErrForbidden      = errors.New("forbidden")
	ErrGateway        = errors.New("payment gateway error")
	ErrUpstream       = errors.New("upstream unavailable")
)
