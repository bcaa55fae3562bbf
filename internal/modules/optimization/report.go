package optimization

// Summary holds the derived diagnostics for a weight vector: the expected
// return and volatility it achieves. Recomputed from the raw inputs so the
// reported numbers validate the solver output rather than echoing it.
type Summary struct {
	Weights    []float64 `json:"weights"`
	Return     float64   `json:"return"`
	Volatility float64   `json:"volatility"`
}

// Summarize recomputes achieved return and volatility for a weight vector.
func Summarize(weights, returns []float64, covariance [][]float64) (Summary, error) {
	achievedReturn, err := PortfolioReturn(weights, returns)
	if err != nil {
		return Summary{}, err
	}
	achievedVolatility, err := Volatility(weights, covariance)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Weights:    weights,
		Return:     achievedReturn,
		Volatility: achievedVolatility,
	}, nil
}
