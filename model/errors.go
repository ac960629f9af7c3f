package model

import "fmt"

// Sentinel errors for the data model, following the channeldb/error.go
// package-level-var idiom: plain fmt.Errorf values compared with
// errors.Is, not a custom error type.
var (
	ErrInvalidExpiry = fmt.Errorf("alpha_expiry must exceed beta_expiry " +
		"by the configured safety margin")
)
