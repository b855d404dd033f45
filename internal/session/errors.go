package session

import "errors"

var (
	// ErrNoSession is returned when a command targets a tab with no
	// tracked meeting.
	ErrNoSession = errors.New("no meeting session for tab")

	// ErrCredentialsMissing is returned by StartRecording when either the
	// speech or the generative service key is unset. Checked before any
	// capture begins.
	ErrCredentialsMissing = errors.New("credentials missing")

	// ErrAlreadyRecording rejects a start command while not Idle.
	ErrAlreadyRecording = errors.New("session is not idle")

	// ErrNotRecording rejects a stop command while not Recording.
	ErrNotRecording = errors.New("session is not recording")
)
