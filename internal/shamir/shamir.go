// Package shamir implements the polynomial sharing and Lagrange-at-zero
// interpolation the threshold protocol relies on: the setup dealer uses
// Split once per level, and client-side aggregation of partial signatures
// uses LagrangeAtZero (via CombineG2).
package shamir

import (
	"github.com/threshca/threshca/internal/curve"
	"github.com/threshca/threshca/internal/errs"
)

// Share is one point (index, f(index)) of a degree-(t-1) polynomial f with
// f(0) equal to the shared secret. Index is 1-based per spec §3.
type Share struct {
	Index  int
	Scalar curve.Scalar
}

// Split samples a random polynomial f(x) = secret + a_1 x + ... + a_{t-1}
// x^{t-1} and returns n evaluations f(1)..f(n). f(0) == secret by
// construction.
func Split(secret curve.Scalar, n, t int) ([]Share, error) {
	if t < 1 || t > n {
		return nil, errs.ErrConfigMissing
	}
	coeffs := make([]curve.Scalar, t)
	coeffs[0] = secret
	for k := 1; k < t; k++ {
		a, err := curve.RandomScalar()
		if err != nil {
			return nil, err
		}
		coeffs[k] = a
	}

	shares := make([]Share, n)
	for i := 1; i <= n; i++ {
		shares[i-1] = Share{
			Index:  i,
			Scalar: evalPoly(coeffs, i),
		}
	}
	return shares, nil
}

// evalPoly computes f(x) via Horner's method over the scalar field.
func evalPoly(coeffs []curve.Scalar, x int) curve.Scalar {
	xs := curve.ScalarFromUint64(uint64(x))
	var acc curve.Scalar
	acc.Set(&coeffs[len(coeffs)-1])
	for i := len(coeffs) - 2; i >= 0; i-- {
		acc.Mul(&acc, &xs)
		acc.Add(&acc, &coeffs[i])
	}
	return acc
}

// LagrangeAtZero computes the Lagrange basis coefficients λ_j(0) for the
// given set of 1-based indices, such that for any t-subset of valid shares
// of a degree-(t-1) polynomial f, Σ λ_j * f(x_j) == f(0).
//
// Fails with ErrDegenerateInterpolation if indices contains a duplicate,
// which would make a denominator (x_j - x_m) vanish.
func LagrangeAtZero(indices []int) ([]curve.Scalar, error) {
	if err := checkDistinct(indices); err != nil {
		return nil, err
	}

	coeffs := make([]curve.Scalar, len(indices))
	for j, xj := range indices {
		num := curve.ScalarFromUint64(1)
		den := curve.ScalarFromUint64(1)
		xjS := curve.ScalarFromUint64(uint64(xj))

		for m, xm := range indices {
			if m == j {
				continue
			}
			xmS := curve.ScalarFromUint64(uint64(xm))

			// numerator term: (0 - x_m) = -x_m
			var negXm curve.Scalar
			negXm.Neg(&xmS)
			num.Mul(&num, &negXm)

			// denominator term: (x_j - x_m)
			var diff curve.Scalar
			diff.Sub(&xjS, &xmS)
			den.Mul(&den, &diff)
		}

		var denInv curve.Scalar
		denInv.Inverse(&den)
		var lambda curve.Scalar
		lambda.Mul(&num, &denInv)
		coeffs[j] = lambda
	}
	return coeffs, nil
}

func checkDistinct(indices []int) error {
	seen := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if _, ok := seen[idx]; ok {
			return errs.ErrDegenerateInterpolation
		}
		seen[idx] = struct{}{}
	}
	return nil
}

// CombineG2 aggregates a t-subset of per-index G2 partial results (partial
// signatures, or any other G2 value homomorphic in the shared secret) into
// the value the master secret would have produced directly: Σ λ_j * v_j.
// Indices are sorted ascending first so the aggregate is stable regardless
// of the order partials arrived in (spec §9, "sequential fan-out").
func CombineG2(indices []int, points []curve.G2) (curve.G2, error) {
	if len(indices) != len(points) {
		return curve.G2{}, errs.ErrDegenerateInterpolation
	}
	order := sortedOrder(indices)
	sortedIdx := make([]int, len(indices))
	sortedPts := make([]curve.G2, len(points))
	for i, o := range order {
		sortedIdx[i] = indices[o]
		sortedPts[i] = points[o]
	}

	coeffs, err := LagrangeAtZero(sortedIdx)
	if err != nil {
		return curve.G2{}, err
	}

	acc := curve.IdentityG2()
	for i, c := range coeffs {
		acc = acc.Add(sortedPts[i].Mul(c))
	}
	return acc, nil
}

func sortedOrder(indices []int) []int {
	order := make([]int, len(indices))
	for i := range order {
		order[i] = i
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && indices[order[j-1]] > indices[order[j]]; j-- {
			order[j-1], order[j] = order[j], order[j-1]
		}
	}
	return order
}

// RecombineSecret is the plain-scalar analogue of CombineG2, used only by
// tests: Σ λ_j * share_j == secret.
func RecombineSecret(shares []Share) (curve.Scalar, error) {
	indices := make([]int, len(shares))
	for i, s := range shares {
		indices[i] = s.Index
	}
	coeffs, err := LagrangeAtZero(indices)
	if err != nil {
		return curve.Scalar{}, err
	}
	var acc curve.Scalar
	for i, c := range coeffs {
		var term curve.Scalar
		term.Mul(&c, &shares[i].Scalar)
		acc.Add(&acc, &term)
	}
	return acc, nil
}

