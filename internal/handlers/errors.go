package handlers

import "errors"

var (
	// ErrStorage marks a failed get, put or copy against the object store.
	ErrStorage = errors.New("storage error")

	// ErrCodec marks a failed identify, encode or resize.
	ErrCodec = errors.New("codec error")

	// ErrInvalidNotification is returned for records whose key cannot be decoded.
	ErrInvalidNotification = errors.New("invalid notification")
)
