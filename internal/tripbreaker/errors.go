package tripbreaker

import "errors"

var (
	// ErrInvalidInput marks structurally broken input: malformed values,
	// mixed individuals or timestamps that do not strictly ascend.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration marks unusable pipeline parameters.
	ErrConfiguration = errors.New("configuration error")

	// ErrProjection marks reference data that cannot be projected.
	ErrProjection = errors.New("projection error")
)
