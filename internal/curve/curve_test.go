package curve

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeG1RoundTrip(t *testing.T) {
	sk, err := RandomScalar()
	require.NoError(t, err)
	pk := G1MulGenerator(sk)

	enc, err := pk.Encode()
	require.NoError(t, err)
	require.Len(t, enc, G1Bytes)

	dec, err := DecodeG1(enc)
	require.NoError(t, err)
	require.True(t, pk.Equal(dec))
}

func TestEncodeDecodeG2RoundTrip(t *testing.T) {
	p := HashToG2([]byte("hello world"))
	enc := p.Encode()
	require.Len(t, enc, G2Bytes)

	dec, err := DecodeG2(enc)
	require.NoError(t, err)
	require.True(t, p.Equal(dec))
}

func TestDecodeG2WrongLength(t *testing.T) {
	_, err := DecodeG2([]byte("too short"))
	require.Error(t, err)
}

func TestDecodeG2PointAtInfinity(t *testing.T) {
	_, err := DecodeG2(make([]byte, G2Bytes))
	require.Error(t, err)
}

func TestHashToG2Deterministic(t *testing.T) {
	msg := []byte("REVOKE:abc-123")
	a := HashToG2(msg)
	b := HashToG2(msg)
	require.True(t, a.Equal(b))

	other := HashToG2([]byte("REVOKE:abc-124"))
	require.False(t, a.Equal(other))
}

func TestBLSSignAndVerify(t *testing.T) {
	sk, err := RandomScalar()
	require.NoError(t, err)
	pk := G1MulGenerator(sk)

	msg := []byte("serial-42|end-entity|2026|ok")
	h := HashToG2(msg)
	sig := h.Mul(sk)

	ok, err := VerifyPairing(pk, h, sig)
	require.NoError(t, err)
	require.True(t, ok)

	wrongSK, err := RandomScalar()
	require.NoError(t, err)
	wrongPK := G1MulGenerator(wrongSK)
	ok, err = VerifyPairing(wrongPK, h, sig)
	require.NoError(t, err)
	require.False(t, ok)
}
