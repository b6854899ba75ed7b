package core

import "errors"

var (
	ErrNoSession         = errors.New("no session for user")
	ErrSessionExists     = errors.New("session already exists")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrAlreadyFinished   = errors.New("session already finished")
	ErrGoalCapacity      = errors.New("goal capacity exceeded")
	ErrGoalIndex         = errors.New("goal index out of range")
	ErrValidation        = errors.New("invalid input")
	ErrStoreClosed       = errors.New("session store closed")
	ErrPersistence       = errors.New("persistence write failed")
	ErrRollbackFailed    = errors.New("rollback failed")
)
