package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// fit estimates a standardized L2-regularized linear regression. Each column
// is z-scored with its training mean and population stddev, then the ridge
// normal equations (ZᵀZ + αI)w = Zᵀ(y - ȳ) are solved by Cholesky. The
// intercept is the target mean since standardized columns are centered.
func fit(X [][]float64, y []float64, alpha float64) (weights []float64, intercept float64, means, stds []float64, err error) {
	n := len(X)
	if n == 0 || n != len(y) {
		return nil, 0, nil, nil, fmt.Errorf("fit: %d samples, %d targets", n, len(y))
	}
	p := len(X[0])

	means = make([]float64, p)
	stds = make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			col[i] = X[i][j]
		}
		means[j] = stat.Mean(col, nil)
		stds[j] = math.Sqrt(stat.PopVariance(col, nil))
	}

	// Z-score; constant columns pass through unscaled.
	z := make([][]float64, n)
	for i := 0; i < n; i++ {
		z[i] = make([]float64, p)
		for j := 0; j < p; j++ {
			s := stds[j]
			if s == 0 {
				s = 1
			}
			z[i][j] = (X[i][j] - means[j]) / s
		}
	}

	intercept = stat.Mean(y, nil)

	a := mat.NewSymDense(p, nil)
	for j := 0; j < p; j++ {
		for k := j; k < p; k++ {
			sum := 0.0
			for i := 0; i < n; i++ {
				sum += z[i][j] * z[i][k]
			}
			if j == k {
				sum += alpha
			}
			a.SetSym(j, k, sum)
		}
	}

	b := mat.NewVecDense(p, nil)
	for j := 0; j < p; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += z[i][j] * (y[i] - intercept)
		}
		b.SetVec(j, sum)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, 0, nil, nil, fmt.Errorf("fit: normal equations not positive definite")
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, b); err != nil {
		return nil, 0, nil, nil, fmt.Errorf("fit: solve: %w", err)
	}

	weights = make([]float64, p)
	for j := 0; j < p; j++ {
		weights[j] = w.AtVec(j)
	}
	return weights, intercept, means, stds, nil
}

// meanAbsoluteError is the mean of |y - yhat|.
func meanAbsoluteError(y, yhat []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	sum := 0.0
	for i := range y {
		sum += math.Abs(y[i] - yhat[i])
	}
	return sum / float64(len(y))
}

// r2Score is the coefficient of determination 1 - SSres/SStot. A constant
// target yields 0.
func r2Score(y, yhat []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	mean := stat.Mean(y, nil)
	ssRes, ssTot := 0.0, 0.0
	for i := range y {
		ssRes += (y[i] - yhat[i]) * (y[i] - yhat[i])
		ssTot += (y[i] - mean) * (y[i] - mean)
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}
