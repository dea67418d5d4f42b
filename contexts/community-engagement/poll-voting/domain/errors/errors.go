package errors

import "errors"

var (
	ErrInvalidPollInput = errors.New("invalid poll input")
	ErrInvalidVoteInput = errors.New("invalid vote input")
	ErrInvalidOption    = errors.New("option does not refer to a populated poll slot")
	ErrPollNotFound     = errors.New("poll not found")
	ErrVoteNotFound     = errors.New("vote not found")
	ErrPollInactive     = errors.New("poll is not active")
	ErrConflict         = errors.New("vote conflict")
)
