package earnings

import "errors"

var (
	ErrInvalidPeriod      = errors.New("statement period is invalid")
	ErrStorageUnavailable = errors.New("statement storage is not configured")
)
