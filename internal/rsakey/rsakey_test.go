package rsakey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndEncodePublicKey(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)
	require.Equal(t, KeySize, kp.Private.N.BitLen())

	pemStr, err := kp.PublicKeyPEM()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(pemStr, "-----BEGIN RSA PUBLIC KEY-----"))
}
