package service

import "errors"

var (
	// ErrEmptyText rejects a message whose body is blank after trimming.
	ErrEmptyText = errors.New("message text is empty")

	// ErrNotParticipant rejects an operation on a scope the caller does
	// not belong to.
	ErrNotParticipant = errors.New("user is not a participant")

	// ErrNotConnected rejects starting a DM between users without an
	// accepted connection.
	ErrNotConnected = errors.New("users are not connected")

	// ErrCallFull rejects a third participant joining a call room.
	ErrCallFull = errors.New("call room is full")

	// ErrMissingField rejects a payload lacking a required identifier.
	ErrMissingField = errors.New("required field is missing")
)
