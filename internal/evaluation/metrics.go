// Package evaluation measures forecast accuracy on held-out rows.
package evaluation

import "math"

// MSE returns the mean squared error.
func MSE(predicted, actual []float64) float64 {
	var total float64
	for i := range predicted {
		d := predicted[i] - actual[i]
		total += d * d
	}
	return total / float64(len(predicted))
}

// MAE returns the mean absolute error.
func MAE(predicted, actual []float64) float64 {
	var total float64
	for i := range predicted {
		total += math.Abs(predicted[i] - actual[i])
	}
	return total / float64(len(predicted))
}

// RMSE returns the root mean squared error.
func RMSE(predicted, actual []float64) float64 {
	return math.Sqrt(MSE(predicted, actual))
}

// R2 returns the coefficient of determination. A constant actual
// series has no variance to explain and reads zero.
func R2(predicted, actual []float64) float64 {
	var mean float64
	for _, a := range actual {
		mean += a
	}
	mean /= float64(len(actual))

	var ssRes, ssTot float64
	for i := range actual {
		d := actual[i] - predicted[i]
		ssRes += d * d
		m := actual[i] - mean
		ssTot += m * m
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// MAPE returns the mean absolute percentage error, in percent.
// Zero-valued actuals are skipped.
func MAPE(predicted, actual []float64) float64 {
	var total float64
	n := 0
	for i := range actual {
		if actual[i] == 0 {
			continue
		}
		total += math.Abs((actual[i] - predicted[i]) / actual[i])
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n) * 100
}
