package exam

import (
	"errors"
	"fmt"
)

var (
	ErrNotRegistered = errors.New("user has not shared a contact")
	ErrNotSubscribed = errors.New("channel subscription required")
	ErrNoActiveExam  = errors.New("no active exam")
	ErrNoAnswers     = errors.New("no answers recorded")
	ErrTooShort      = errors.New("answer shorter than the minimum")
	ErrTooQuiet      = errors.New("audio too small to contain speech")
)

// RateLimitedError reports that the tariff's attempt ceiling is spent and no
// bonus mock was available.
type RateLimitedError struct {
	Tariff  string
	Ceiling int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("attempt limit reached: %d per 24h on %s tariff", e.Ceiling, e.Tariff)
}
