package repository

import "errors"

var (
	// ErrSourceUnavailable indicates no configured source can serve the location
	ErrSourceUnavailable = errors.New("image source unavailable")

	// ErrEmptyUpload indicates an upload stream carried no bytes
	ErrEmptyUpload = errors.New("empty upload")
)
