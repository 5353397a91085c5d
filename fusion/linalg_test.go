package fusion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityMultiply(t *testing.T) {
	m := [][]float64{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 10},
	}
	id := Identity(3)

	left := MatMul(id, m)
	right := MatMul(m, id)
	for i := range m {
		for j := range m[i] {
			assert.InDelta(t, m[i][j], left[i][j], 1e-12)
			assert.InDelta(t, m[i][j], right[i][j], 1e-12)
		}
	}
}

func TestInverseRoundTrip(t *testing.T) {
	m := [][]float64{
		{4, 7, 2},
		{3, 6, 1},
		{2, 5, 3},
	}
	inv, err := Inverse(m)
	require.NoError(t, err)

	product := MatMul(m, inv)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			expected := 0.0
			if i == j {
				expected = 1.0
			}
			assert.InDelta(t, expected, product[i][j], 1e-10)
		}
	}
}

func TestInverseSingular(t *testing.T) {
	m := [][]float64{
		{1, 2},
		{2, 4},
	}
	_, err := Inverse(m)
	require.ErrorIs(t, err, ErrSingularMatrix)
}

func TestTranspose(t *testing.T) {
	m := [][]float64{
		{1, 2, 3},
		{4, 5, 6},
	}
	tr := Transpose(m)
	require.Len(t, tr, 3)
	require.Len(t, tr[0], 2)
	assert.Equal(t, 4.0, tr[0][1])
	assert.Equal(t, 3.0, tr[2][0])
}

func TestMatVec(t *testing.T) {
	m := [][]float64{
		{1, 0, 2},
		{0, 3, 0},
	}
	v := []float64{2, 4, 1}
	out := MatVec(m, v)
	require.Len(t, out, 2)
	assert.InDelta(t, 4.0, out[0], 1e-12)
	assert.InDelta(t, 12.0, out[1], 1e-12)
}

func TestJacobianStructure(t *testing.T) {
	dt := 0.25
	f := Jacobian(dt)
	require.Len(t, f, StateDim)

	for i := 0; i < StateDim; i++ {
		assert.Equal(t, 1.0, f[i][i], "diagonal at %d", i)
	}
	// position from velocity and velocity from acceleration
	for i := 0; i < 3; i++ {
		assert.Equal(t, dt, f[i][i+3])
		assert.Equal(t, dt, f[i+3][i+6])
	}
	// wind block stays identity
	for i := 12; i < StateDim; i++ {
		for j := 0; j < StateDim; j++ {
			if i != j {
				assert.Zero(t, f[i][j])
			}
		}
	}
}

func TestMatAddSub(t *testing.T) {
	a := [][]float64{{1, 2}, {3, 4}}
	b := [][]float64{{5, 6}, {7, 8}}
	sum := MatAdd(a, b)
	diff := MatSub(sum, b)
	for i := range a {
		for j := range a[i] {
			assert.InDelta(t, a[i][j], diff[i][j], 1e-12)
		}
	}
}

func TestInverseLargeWellConditioned(t *testing.T) {
	// Diagonally dominant 6x6, like an innovation covariance.
	n := 6
	m := Zeros(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				m[i][j] = 10 + float64(i)
			} else {
				m[i][j] = 0.5
			}
		}
	}
	inv, err := Inverse(m)
	require.NoError(t, err)
	product := MatMul(m, inv)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			expected := 0.0
			if i == j {
				expected = 1.0
			}
			assert.InDelta(t, expected, product[i][j], 1e-10)
		}
	}
	require.False(t, math.IsNaN(inv[0][0]))
}
