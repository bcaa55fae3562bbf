// Package optimization provides portfolio allocation optimization.
//
// The core operation maximizes expected portfolio return subject to full
// capital deployment (weights sum to 1), per-asset weight bounds and an
// optional cap on portfolio volatility. All vectors and matrices are indexed
// by the same asset ordering.
package optimization

// Bound is a per-asset weight interval [Lower, Upper].
type Bound struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Problem describes one optimization: expected returns per asset, the asset
// return covariance matrix, optional per-asset bounds (default 0..1) and an
// optional upper bound on portfolio volatility (nil = uncapped).
type Problem struct {
	Returns       []float64
	Covariance    [][]float64
	Bounds        []Bound
	VolatilityCap *float64
}

// Result is the solver output. Success is false when the problem is
// infeasible or the solver failed to satisfy the constraints to tolerance;
// the weights are then the best iterate found and must not be trusted.
type Result struct {
	Weights    []float64 `json:"weights"`
	Success    bool      `json:"success"`
	Status     string    `json:"status"`
	Return     float64   `json:"return"`
	Volatility float64   `json:"volatility"`
}
