package domain

import "errors"

// Domain errors
var (
	// Validation
	ErrInvalidLetter        = errors.New("letter must be a single alphabetic character")
	ErrInvalidWord          = errors.New("word must be at least 3 characters")
	ErrInvalidDifficulty    = errors.New("invalid difficulty")
	ErrLetterAlreadyGuessed = errors.New("letter was already guessed")
	ErrInvalidRequest       = errors.New("invalid request")

	// Not found
	ErrSessionNotFound = errors.New("session not found")
	ErrNoActiveSession = errors.New("no active session")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrNotParticipant  = errors.New("you are not part of this session")
	ErrNoWordAvailable = errors.New("no word available for difficulty")

	// State conflicts
	ErrSessionNotWaiting   = errors.New("session is not accepting players")
	ErrSessionNotActive    = errors.New("session is not active")
	ErrSessionCompleted    = errors.New("session is already completed")
	ErrAlreadyJoined       = errors.New("you already joined this session")
	ErrActiveSessionExists = errors.New("you already have a waiting or active session")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrNothingToReveal     = errors.New("no hidden letters to reveal")
	ErrVersionConflict     = errors.New("session was modified concurrently")

	// Resources
	ErrInsufficientCoins = errors.New("not enough coins")

	// Expiry
	ErrSessionExpired = errors.New("session has expired")

	ErrInternal = errors.New("internal server error")
)

// IsValidation reports whether the error is a malformed-input rejection
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidLetter) ||
		errors.Is(err, ErrInvalidWord) ||
		errors.Is(err, ErrInvalidDifficulty) ||
		errors.Is(err, ErrLetterAlreadyGuessed) ||
		errors.Is(err, ErrInvalidRequest)
}

// IsNotFound reports whether the error is a missing session/player/word
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrNoActiveSession) ||
		errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrNotParticipant) ||
		errors.Is(err, ErrNoWordAvailable)
}

// IsConflict reports whether the error is a wrong-state or concurrency rejection
func IsConflict(err error) bool {
	return errors.Is(err, ErrSessionNotWaiting) ||
		errors.Is(err, ErrSessionNotActive) ||
		errors.Is(err, ErrSessionCompleted) ||
		errors.Is(err, ErrAlreadyJoined) ||
		errors.Is(err, ErrActiveSessionExists) ||
		errors.Is(err, ErrNotYourTurn) ||
		errors.Is(err, ErrNothingToReveal) ||
		errors.Is(err, ErrVersionConflict)
}

// IsInsufficient reports whether the error is a resource shortfall
func IsInsufficient(err error) bool {
	return errors.Is(err, ErrInsufficientCoins)
}

// IsExpired reports whether the error is a lazy-expiry rejection
func IsExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}
