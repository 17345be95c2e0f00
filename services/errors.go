package services

import "errors"

// Errors shared across services and the HTTP mapping layer.
var (
	// Tournament lifecycle.
	ErrTournamentNameRequired            = errors.New("tournament name is required")
	ErrTournamentInvalidType             = errors.New("invalid tournament type")
	ErrTournamentInvalidSpeedProfile     = errors.New("invalid speed profile")
	ErrTournamentInvalidCapacity         = errors.New("tournament max participants must be at least 2")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrTournamentNameConflict            = errors.New("tournament name already exists")
	ErrTournamentNotFound                = errors.New("tournament not found")

	// Registration.
	ErrRegistrationNotOpen  = errors.New("tournament registration is not open")
	ErrTournamentFull       = errors.New("tournament registration is full")
	ErrRegistrationConflict = errors.New("already registered for this tournament")
	ErrGuestAliasRequired   = errors.New("guest alias is required")
	ErrParticipantNotFound  = errors.New("participant registration not found")

	// Starting.
	ErrNotEnoughParticipants = errors.New("not enough participants to start the tournament")
	ErrBracketSizeInvalid    = errors.New("participant count not supported by the bracket type")

	// Match results.
	ErrMatchNotFound       = errors.New("match not found")
	ErrMatchNotActive      = errors.New("match is not active")
	ErrWinnerNotInMatch    = errors.New("winner is not one of the match participants")
	ErrInvalidMatchStatus  = errors.New("invalid terminal match status")
	ErrInvalidRoomKey      = errors.New("room key does not name a tournament match")
	ErrResultAlreadyStored = errors.New("match result already recorded")

	// Authentication.
	ErrAuthenticationFailed = errors.New("authentication failed")
)
