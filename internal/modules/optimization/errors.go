package optimization

import "errors"

// Error taxonomy for the optimizer. Malformed inputs are rejected before any
// solver iteration runs; a solver that terminates without satisfying the
// constraints reports failure through Result.Success instead of an error.
var (
	// ErrInvalidInput marks malformed configuration: empty universe,
	// inverted bounds, negative volatility cap.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch marks length disagreement between the return
	// vector, covariance matrix and bounds.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNumericDomain marks an ill-conditioned covariance matrix that
	// produced a negative quadratic form.
	ErrNumericDomain = errors.New("numeric domain error")
)
