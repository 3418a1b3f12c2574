// Package keymat implements the per-level key-setup procedure (spec §4.3):
// a trusted dealer derives each level's master secret, splits it with
// Shamir, and publishes the per-node share records and the level's master
// public key. Records are TOML-encoded, mirroring the teacher's
// key.Share.TOML()/FromTOML() convention.
package keymat

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/BurntSushi/toml"

	"github.com/threshca/threshca/internal/curve"
	"github.com/threshca/threshca/internal/shamir"
)

// masterSeedPrefix is the domain-separation label for the deterministic
// master-secret derivation of spec §4.3 step 1. Any equivalent secure KDF
// is acceptable as long as the resulting masterPK is published; this one is
// kept deterministic for reproducible demos and tests.
const masterSeedPrefix = "thresh-demo-master-level"

// ShareRecord is the opaque per-node record spec §4.3 step 4 and §6
// describe: one Shamir share plus enough level metadata for a node to
// operate standalone.
type ShareRecord struct {
	NodeID      int    `toml:"node_id"`
	Share       string `toml:"share"` // hex-encoded scalar
	Level       int    `toml:"level"`
	Threshold   int    `toml:"threshold"`
	NumNodes    int    `toml:"num_nodes"`
	MasterPKHex string `toml:"master_pk"` // redundant, convenient (spec §4.3)
}

// LevelKeyMaterial is the dealer's full output for one level: the public
// key and every node's share. MasterSK is zeroed by Wipe once shares have
// been derived and must not be persisted.
type LevelKeyMaterial struct {
	Level     int
	Threshold int
	NumNodes  int
	MasterSK  curve.Scalar
	MasterPK  curve.G1
	Records   []ShareRecord
}

// Wipe overwrites the in-memory master secret scalar, per spec §4.3's
// requirement that it not survive past share derivation.
func (m *LevelKeyMaterial) Wipe() {
	m.MasterSK.SetZero()
}

// DeriveMasterSecret computes masterSK_ℓ = SHA-256("thresh-demo-master-level"
// || ℓ) mod R.
func DeriveMasterSecret(level int) curve.Scalar {
	seed := fmt.Sprintf("%s%d", masterSeedPrefix, level)
	return curve.ScalarFromSHA256([]byte(seed))
}

// Deal runs the full per-level setup procedure of spec §4.3: derive the
// master secret, publish its G1 public key, Shamir-split it over n nodes at
// threshold t, and wipe the secret before returning.
func Deal(level, n, t int) (*LevelKeyMaterial, error) {
	sk := DeriveMasterSecret(level)
	pk := curve.G1MulGenerator(sk)

	shares, err := shamir.Split(sk, n, t)
	if err != nil {
		return nil, err
	}

	pkBytes, err := pk.Encode()
	if err != nil {
		return nil, err
	}
	pkHex := hex.EncodeToString(pkBytes)

	records := make([]ShareRecord, n)
	for i, s := range shares {
		shareBytes := scalarToBigEndian(s.Scalar)
		records[i] = ShareRecord{
			NodeID:      s.Index,
			Share:       hex.EncodeToString(shareBytes),
			Level:       level,
			Threshold:   t,
			NumNodes:    n,
			MasterPKHex: pkHex,
		}
	}

	m := &LevelKeyMaterial{
		Level:     level,
		Threshold: t,
		NumNodes:  n,
		MasterSK:  sk,
		MasterPK:  pk,
		Records:   records,
	}
	m.Wipe()
	return m, nil
}

// DealAllLevels runs Deal for every level 1..=numLevels in order, matching
// the reference dealer's behavior of producing every level's shares up
// front rather than lazily as nodes start (original_source/sharedca/keygen.py).
func DealAllLevels(numLevels, n, t int) ([]*LevelKeyMaterial, error) {
	out := make([]*LevelKeyMaterial, numLevels)
	for lvl := 1; lvl <= numLevels; lvl++ {
		m, err := Deal(lvl, n, t)
		if err != nil {
			return nil, err
		}
		out[lvl-1] = m
	}
	return out, nil
}

// MasterPKHex renders the trust-anchor file contents for this level: a
// single hex-encoded 96-byte G1 point, named level<ℓ>_master_pk.hex on disk
// (spec §6).
func (m *LevelKeyMaterial) MasterPKHex() (string, error) {
	b, err := m.MasterPK.Encode()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// MarshalShareRecord encodes a single node's share record as TOML.
func MarshalShareRecord(r ShareRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalShareRecord decodes a node's TOML share record.
func UnmarshalShareRecord(data []byte) (ShareRecord, error) {
	var r ShareRecord
	if _, err := toml.Decode(string(data), &r); err != nil {
		return ShareRecord{}, err
	}
	return r, nil
}

// Scalar decodes the record's hex share back into a curve.Scalar.
func (r ShareRecord) Scalar() (curve.Scalar, error) {
	b, err := hex.DecodeString(r.Share)
	if err != nil {
		return curve.Scalar{}, err
	}
	var s curve.Scalar
	s.SetBytes(b)
	return s, nil
}

// MasterPK decodes the record's redundant master-PK hex field.
func (r ShareRecord) MasterPK() (curve.G1, error) {
	b, err := hex.DecodeString(r.MasterPKHex)
	if err != nil {
		return curve.G1{}, err
	}
	return curve.DecodeG1(b)
}

func scalarToBigEndian(s curve.Scalar) []byte {
	bi := new(big.Int)
	s.BigInt(bi)
	out := make([]byte, curve.ScalarBytes)
	bi.FillBytes(out)
	return out
}

// ParseTrustAnchorHex decodes a trust-anchor file's hex-encoded 96-byte G1
// point (spec §6).
func ParseTrustAnchorHex(hexStr string) (curve.G1, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return curve.G1{}, err
	}
	return curve.DecodeG1(b)
}

