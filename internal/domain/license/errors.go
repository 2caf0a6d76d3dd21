package license

import "errors"

var (
	ErrAlreadyLicensed = errors.New("buyer already holds an active license for this item")
	ErrNotFound        = errors.New("license not found")
)
