package playback

import "errors"

var (
	// ErrRecordingNotFound means the recording is absent or not complete.
	ErrRecordingNotFound = errors.New("recording not found")
	// ErrFileUnavailable means the backing file is missing or cannot be opened.
	ErrFileUnavailable = errors.New("recording file unavailable")
	// ErrNoSession means there is no loaded session to act on.
	ErrNoSession = errors.New("no session loaded")
)
