package fusion

import (
	"errors"
	"math"
)

// ErrSingularMatrix is returned by Inverse when Gauss-Jordan elimination
// cannot find a usable pivot. Callers must treat it as a hard numeric
// failure, not as sensor noise.
var ErrSingularMatrix = errors.New("singular matrix")

// Small dense matrix helpers for the Kalman filters. Matrices are
// [][]float64 sized at most 18x18; every operation allocates its result.

// Identity creates an n x n identity matrix.
func Identity(n int) [][]float64 {
	m := Zeros(n, n)
	for i := 0; i < n; i++ {
		m[i][i] = 1.0
	}
	return m
}

// Zeros creates an r x c zero matrix.
func Zeros(r, c int) [][]float64 {
	m := make([][]float64, r)
	for i := 0; i < r; i++ {
		m[i] = make([]float64, c)
	}
	return m
}

// MatAdd computes C = A + B.
func MatAdd(a, b [][]float64) [][]float64 {
	r, c := len(a), len(a[0])
	out := Zeros(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[i][j] = a[i][j] + b[i][j]
		}
	}
	return out
}

// MatSub computes C = A - B.
func MatSub(a, b [][]float64) [][]float64 {
	r, c := len(a), len(a[0])
	out := Zeros(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[i][j] = a[i][j] - b[i][j]
		}
	}
	return out
}

// MatMul computes C = A * B.
func MatMul(a, b [][]float64) [][]float64 {
	r, n, c := len(a), len(a[0]), len(b[0])
	out := Zeros(r, c)
	for i := 0; i < r; i++ {
		for k := 0; k < n; k++ {
			v := a[i][k]
			if v == 0.0 {
				continue
			}
			for j := 0; j < c; j++ {
				out[i][j] += v * b[k][j]
			}
		}
	}
	return out
}

// MatVec computes y = A * x.
func MatVec(a [][]float64, x []float64) []float64 {
	r := len(a)
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		sum := 0.0
		for j := 0; j < len(x); j++ {
			sum += a[i][j] * x[j]
		}
		out[i] = sum
	}
	return out
}

// Transpose computes A^T.
func Transpose(a [][]float64) [][]float64 {
	r, c := len(a), len(a[0])
	out := Zeros(c, r)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[j][i] = a[i][j]
		}
	}
	return out
}

// Inverse computes A^-1 by Gauss-Jordan elimination with partial pivoting.
// Sufficient for the filter's 3x3 / 6x6 / 18x18 matrices. Returns
// ErrSingularMatrix when the largest candidate pivot in a column has
// magnitude below 1e-12.
func Inverse(a [][]float64) ([][]float64, error) {
	n := len(a)
	aug := Zeros(n, 2*n)
	for i := 0; i < n; i++ {
		copy(aug[i], a[i])
		aug[i][n+i] = 1.0
	}

	for col := 0; col < n; col++ {
		pivot := col
		max := math.Abs(aug[pivot][col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(aug[r][col]); v > max {
				max = v
				pivot = r
			}
		}
		if max < 1e-12 {
			return nil, ErrSingularMatrix
		}
		if pivot != col {
			aug[col], aug[pivot] = aug[pivot], aug[col]
		}

		inv := 1.0 / aug[col][col]
		for j := 0; j < 2*n; j++ {
			aug[col][j] *= inv
		}

		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := aug[r][col]
			if factor == 0.0 {
				continue
			}
			for j := 0; j < 2*n; j++ {
				aug[r][j] -= factor * aug[col][j]
			}
		}
	}

	out := Zeros(n, n)
	for i := 0; i < n; i++ {
		copy(out[i], aug[i][n:])
	}
	return out, nil
}

// Jacobian builds the 18x18 state transition matrix for the standard
// integrator: identity plus the first-order position-from-velocity and
// velocity-from-acceleration terms. Aero, wind, and wind-aero blocks are
// constant under the linearization.
func Jacobian(dt float64) [][]float64 {
	f := Identity(StateDim)
	// dp/dv
	f[0][3] = dt
	f[1][4] = dt
	f[2][5] = dt
	// dv/da
	f[3][6] = dt
	f[4][7] = dt
	f[5][8] = dt
	return f
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func allFiniteMat(m [][]float64) bool {
	for i := range m {
		if !allFinite(m[i]) {
			return false
		}
	}
	return true
}
