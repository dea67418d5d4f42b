package errors

import "errors"

var (
	ErrInvalidRankingInput = errors.New("invalid ranking input")
	ErrInvalidItemInput    = errors.New("invalid ranking item input")
	ErrRankingNotFound     = errors.New("ranking not found")
	ErrItemNotFound        = errors.New("ranking item not found")
	ErrConflict            = errors.New("ranking update conflict")
)
