// Package curve implements the scalar and group arithmetic the threshold-CA
// protocol is built on: BLS12-381 G1/G2/GT, a bilinear pairing, and the
// fixed-width point encodings that form the system's on-wire contract.
//
// The group law and pairing come straight from
// github.com/consensys/gnark-crypto's ecc/bls12-381 package. Its Point type
// is used instead of the teacher's drand/kyber-bls12381 precisely because it
// exposes raw affine/Jacobian field-element coordinates: the wire encoding
// below must be bit-exact, and kyber's Point interface only offers its own
// (different, compressed) MarshalBinary.
package curve

import (
	"crypto/sha256"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fp"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/threshca/threshca/internal/errs"
)

// Scalar is an element of the BLS12-381 subgroup order field, R in spec
// terms. fr.Element already reduces every operation mod R.
type Scalar = fr.Element

// ScalarBytes is the canonical (non-wire) width of a serialized scalar, used
// only internally (share files); it is never part of the point encodings in
// §3.
const ScalarBytes = fr.Bytes

// Order returns R, the BLS12-381 subgroup order.
func Order() *big.Int {
	return fr.Modulus()
}

// RandomScalar draws a uniformly random scalar in [0, R), as Shamir's
// coefficient sampling requires.
func RandomScalar() (Scalar, error) {
	var s Scalar
	if _, err := s.SetRandom(); err != nil {
		return Scalar{}, err
	}
	return s, nil
}

// ScalarFromUint64 builds the scalar x (as used for 1-based share indices).
func ScalarFromUint64(x uint64) Scalar {
	var s Scalar
	s.SetUint64(x)
	return s
}

// ScalarFromSHA256 computes SHA-256(msg) mod R, the integer half of the
// system's hash-to-G2 construction (§4.1). Kept separate from HashToG2 so
// both the curve layer and tests can inspect the intermediate scalar.
func ScalarFromSHA256(msg []byte) Scalar {
	digest := sha256.Sum256(msg)
	var s Scalar
	s.SetBytes(digest[:])
	return s
}

// G1 generator and group law. masterPK_ℓ lives here (spec §3); it is the
// per-level threshold public key.
type G1 struct {
	p bls12381.G1Jac
}

// G1Generator returns the fixed base point of G1.
func G1Generator() G1 {
	_, _, g1Aff, _ := bls12381.Generators()
	var j bls12381.G1Jac
	j.FromAffine(&g1Aff)
	return G1{p: j}
}

// G1MulGenerator returns s*G1Generator; this is how a level's master secret
// scalar becomes its master public key (spec §4.3 step 2).
func G1MulGenerator(s Scalar) G1 {
	base := G1Generator()
	var out bls12381.G1Jac
	bi := new(big.Int)
	s.BigInt(bi)
	out.ScalarMultiplication(&base.p, bi)
	return G1{p: out}
}

// Mul returns s*g. Used by the Feldman VSS commitment check, which scales
// arbitrary commitment points rather than just the generator.
func (g G1) Mul(s Scalar) G1 {
	var out bls12381.G1Jac
	bi := new(big.Int)
	s.BigInt(bi)
	out.ScalarMultiplication(&g.p, bi)
	return G1{p: out}
}

// Add returns g+o.
func (g G1) Add(o G1) G1 {
	var out bls12381.G1Jac
	out.Set(&g.p)
	out.AddAssign(&o.p)
	return G1{p: out}
}

// IdentityG1 is the neutral element of G1, the start value for summing
// commitments.
func IdentityG1() G1 {
	var j bls12381.G1Jac
	j.Z.SetZero()
	return G1{p: j}
}

// Equal reports whether two G1 points denote the same group element.
func (g G1) Equal(o G1) bool {
	var a, b bls12381.G1Affine
	a.FromJacobian(&g.p)
	b.FromJacobian(&o.p)
	return a.Equal(&b)
}

func (g G1) affine() (bls12381.G1Affine, error) {
	if g.p.Z.IsZero() {
		return bls12381.G1Affine{}, errs.ErrPointAtInfinity
	}
	var a bls12381.G1Affine
	a.FromJacobian(&g.p)
	return a, nil
}

// G1Bytes is the fixed width of an affine-encoded G1 point: two 48-byte
// big-endian field elements (x, y).
const G1Bytes = 2 * fp.Bytes

// Encode serializes g as 96 bytes: x, then y, affine, big-endian.
func (g G1) Encode() ([]byte, error) {
	a, err := g.affine()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, G1Bytes)
	xb := a.X.Bytes()
	yb := a.Y.Bytes()
	out = append(out, xb[:]...)
	out = append(out, yb[:]...)
	return out, nil
}

// DecodeG1 parses a 96-byte affine encoding produced by G1.Encode.
func DecodeG1(b []byte) (G1, error) {
	if len(b) != G1Bytes {
		return G1{}, errs.ErrMalformedPoint
	}
	var a bls12381.G1Affine
	a.X.SetBytes(b[:fp.Bytes])
	a.Y.SetBytes(b[fp.Bytes:])
	if !a.IsOnCurve() {
		return G1{}, errs.ErrMalformedPoint
	}
	var j bls12381.G1Jac
	j.FromAffine(&a)
	return G1{p: j}, nil
}

// G2 is the group signatures, partial signatures, and H2(m) live in.
type G2 struct {
	p bls12381.G2Jac
}

// G2Generator returns the fixed base point of G2.
func G2Generator() G2 {
	_, _, _, g2Aff := bls12381.Generators()
	var j bls12381.G2Jac
	j.FromAffine(&g2Aff)
	return G2{p: j}
}

// Mul returns s*g.
func (g G2) Mul(s Scalar) G2 {
	var out bls12381.G2Jac
	bi := new(big.Int)
	s.BigInt(bi)
	out.ScalarMultiplication(&g.p, bi)
	return G2{p: out}
}

// Add returns g+o.
func (g G2) Add(o G2) G2 {
	var out bls12381.G2Jac
	out.Set(&g.p)
	out.AddAssign(&o.p)
	return G2{p: out}
}

// Equal reports whether two G2 points denote the same group element.
func (g G2) Equal(o G2) bool {
	var a, b bls12381.G2Affine
	a.FromJacobian(&g.p)
	b.FromJacobian(&o.p)
	return a.Equal(&b)
}

// IdentityG2 is the neutral element of G2, the start value for summing
// partial signatures.
func IdentityG2() G2 {
	var j bls12381.G2Jac
	j.Z.SetZero()
	return G2{p: j}
}

// G2Bytes is the fixed width of a Jacobian-encoded G2 point: three FQ2
// coordinates (x, y, z), each 96 bytes (two 48-byte FQ elements).
const G2Bytes = 3 * 2 * fp.Bytes

// Encode serializes g as 288 bytes: x, y, z in Jacobian form, each an FQ2
// (real, imaginary) pair of 48-byte big-endian field elements.
func (g G2) Encode() []byte {
	out := make([]byte, 0, G2Bytes)
	out = appendE2(out, g.p.X)
	out = appendE2(out, g.p.Y)
	out = appendE2(out, g.p.Z)
	return out
}

func appendE2(dst []byte, e bls12381.E2) []byte {
	a0 := e.A0.Bytes()
	a1 := e.A1.Bytes()
	dst = append(dst, a0[:]...)
	dst = append(dst, a1[:]...)
	return dst
}

func readE2(b []byte) bls12381.E2 {
	var e bls12381.E2
	e.A0.SetBytes(b[:fp.Bytes])
	e.A1.SetBytes(b[fp.Bytes:])
	return e
}

// DecodeG2 parses a 288-byte Jacobian encoding produced by G2.Encode. It
// fails with ErrPointAtInfinity when z decodes to zero, and with
// ErrMalformedPoint on any other malformed or off-curve input.
func DecodeG2(b []byte) (G2, error) {
	if len(b) != G2Bytes {
		return G2{}, errs.ErrMalformedPoint
	}
	var j bls12381.G2Jac
	j.X = readE2(b[0 : 2*fp.Bytes])
	j.Y = readE2(b[2*fp.Bytes : 4*fp.Bytes])
	j.Z = readE2(b[4*fp.Bytes : 6*fp.Bytes])
	if j.Z.IsZero() {
		return G2{}, errs.ErrPointAtInfinity
	}
	var a bls12381.G2Affine
	a.FromJacobian(&j)
	if !a.IsOnCurve() {
		return G2{}, errs.ErrMalformedPoint
	}
	return G2{p: j}, nil
}

// HashToG2 is the system's hash-to-curve construction: H2(m) = [SHA-256(m)
// mod R] * G2Generator. It is NOT indifferentiable from a random oracle and
// is not RFC 9380 compliant, but every signature in this system is defined
// in terms of it, so it must be preserved exactly for interop (see spec
// design notes).
func HashToG2(msg []byte) G2 {
	s := ScalarFromSHA256(msg)
	return G2Generator().Mul(s)
}

// Pair evaluates the bilinear pairing e(p1, p2) in GT.
func Pair(p1 G1, p2 G2) (bls12381.GT, error) {
	var a bls12381.G1Affine
	a.FromJacobian(&p1.p)
	var b bls12381.G2Affine
	b.FromJacobian(&p2.p)
	return bls12381.Pair([]bls12381.G1Affine{a}, []bls12381.G2Affine{b})
}

// VerifyPairing checks e(g1Generator, sig) == e(masterPK, msgPoint), the
// equation every partial, threshold, and final signature in this system
// must satisfy (spec invariant I2, and its per-node and per-message
// instantiations).
func VerifyPairing(masterPK G1, msgPoint, sig G2) (bool, error) {
	left, err := Pair(G1Generator(), sig)
	if err != nil {
		return false, err
	}
	right, err := Pair(masterPK, msgPoint)
	if err != nil {
		return false, err
	}
	return left.Equal(&right), nil
}
