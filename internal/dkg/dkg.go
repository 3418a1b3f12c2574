// Package dkg implements the commitment-generation and Feldman VSS
// share-verification half of a distributed key generation round, grounded
// in the prototype's unfinished sharedca/dkg.py. Deal's trusted-dealer
// keygen (internal/keymat) is what the rest of this module actually uses;
// this package is carried forward as explicitly unwired reference
// infrastructure for a future interactive setup where no single party ever
// holds the level's master secret. There is no network coordinator here:
// nothing in this module calls State.Finalize outside of tests.
package dkg

import (
	"fmt"

	"github.com/threshca/threshca/internal/curve"
	"github.com/threshca/threshca/internal/errs"
)

// State is one participant's view of a DKG round: its own random
// polynomial, the commitments and shares it has received from peers, and
// the set of peers it has complained about.
type State struct {
	NodeID     int
	TotalNodes int
	Threshold  int

	poly    []curve.Scalar
	commits map[int][]curve.G1

	receivedShares map[int]curve.Scalar
	complaints     map[int]struct{}
}

// NewState draws a random degree-(threshold-1) polynomial for participant
// nodeID and computes its own commitments.
func NewState(nodeID, totalNodes, threshold int) (*State, error) {
	poly := make([]curve.Scalar, threshold)
	for i := range poly {
		s, err := curve.RandomScalar()
		if err != nil {
			return nil, fmt.Errorf("draw polynomial coefficient %d: %w", i, err)
		}
		poly[i] = s
	}
	s := &State{
		NodeID:         nodeID,
		TotalNodes:     totalNodes,
		Threshold:      threshold,
		poly:           poly,
		commits:        make(map[int][]curve.G1),
		receivedShares: make(map[int]curve.Scalar),
		complaints:     make(map[int]struct{}),
	}
	s.commits[nodeID] = s.Commitments()
	return s, nil
}

// Commitments returns C_k = coeff_k * G1 for this participant's polynomial,
// the values it broadcasts to every other participant.
func (s *State) Commitments() []curve.G1 {
	out := make([]curve.G1, len(s.poly))
	for i, c := range s.poly {
		out[i] = curve.G1MulGenerator(c)
	}
	return out
}

// ShareFor evaluates this participant's polynomial at x=j, the share it
// privately sends to participant j.
func (s *State) ShareFor(j int) curve.Scalar {
	return evalPoly(s.poly, j)
}

func evalPoly(coeffs []curve.Scalar, x int) curve.Scalar {
	var res curve.Scalar
	xs := curve.ScalarFromUint64(uint64(x))
	for k := len(coeffs) - 1; k >= 0; k-- {
		res.Mul(&res, &xs)
		res.Add(&res, &coeffs[k])
	}
	return res
}

// ReceiveCommitments records the commitments broadcast by participant
// fromNode.
func (s *State) ReceiveCommitments(fromNode int, commits []curve.G1) {
	s.commits[fromNode] = commits
}

// VerifyShare checks share s_ij against fromNode's commitments:
// s_ij * G1 == Σ_k C_k * j^k. This is the Feldman VSS consistency check
// (original sharedca/dkg.py's verify_share).
func VerifyShare(share curve.Scalar, j int, commits []curve.G1) bool {
	lhs := curve.G1MulGenerator(share)

	var rhs curve.G1
	haveRhs := false
	for k, ck := range commits {
		power := curve.ScalarFromUint64(powMod(uint64(j), k))
		term := ck.Mul(power)
		if !haveRhs {
			rhs = term
			haveRhs = true
			continue
		}
		rhs = rhs.Add(term)
	}
	if !haveRhs {
		return false
	}
	return lhs.Equal(rhs)
}

func powMod(base uint64, exp int) uint64 {
	res := uint64(1)
	for i := 0; i < exp; i++ {
		res *= base
	}
	return res
}

// ReceiveShare verifies a share from fromNode against its recorded
// commitments and records it, or records a complaint against fromNode.
func (s *State) ReceiveShare(fromNode int, share curve.Scalar) {
	commits, ok := s.commits[fromNode]
	if !ok {
		s.complaints[fromNode] = struct{}{}
		return
	}
	if !VerifyShare(share, s.NodeID, commits) {
		s.complaints[fromNode] = struct{}{}
		return
	}
	s.receivedShares[fromNode] = share
}

// Finalize sums the shares received from every non-complained-about
// participant into this participant's local secret share, and sums the
// degree-0 commitments of the same honest set into the level's master
// public key. It is never called outside of this package's tests — no
// coordinator drives a full round across real network participants.
func (s *State) Finalize() (curve.Scalar, curve.G1, error) {
	for i := 1; i <= s.TotalNodes; i++ {
		if i == s.NodeID {
			continue
		}
		if _, ok := s.receivedShares[i]; !ok {
			s.complaints[i] = struct{}{}
		}
	}

	honest := make([]int, 0, s.TotalNodes)
	for i := 1; i <= s.TotalNodes; i++ {
		if _, bad := s.complaints[i]; !bad {
			honest = append(honest, i)
		}
	}
	if len(honest) < s.Threshold {
		return curve.Scalar{}, curve.G1{}, fmt.Errorf("%w: only %d honest participants, need %d", errs.ErrInsufficientPartials, len(honest), s.Threshold)
	}

	var localSK curve.Scalar
	mpk := curve.IdentityG1()
	for _, i := range honest {
		if share, ok := s.receivedShares[i]; ok {
			localSK.Add(&localSK, &share)
		} else if i == s.NodeID {
			own := s.ShareFor(s.NodeID)
			localSK.Add(&localSK, &own)
		}
		c, ok := s.commits[i]
		if !ok || len(c) == 0 {
			continue
		}
		mpk = mpk.Add(c[0])
	}
	return localSK, mpk, nil
}
