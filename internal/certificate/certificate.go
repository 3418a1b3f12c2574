// Package certificate implements the TBS (to-be-signed) data model, its
// bit-exact wire encoding, and the PEM-like bundle format chaining
// certificates across levels (spec §3).
package certificate

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/threshca/threshca/internal/curve"
	"github.com/threshca/threshca/internal/errs"
)

const (
	fieldSep  = "|"
	sigSep    = "||SIG||"
	beginLine = "-----BEGIN THRESH-CA CERT-----"
	endLine   = "-----END THRESH-CA CERT-----"

	caLiteral = "CA"
	eeLiteral = "EE"

	// BLSPubKeyPrefix marks a CA certificate's subject_pub_blob as carrying
	// a 96-byte encoded G1 master public key rather than an RSA blob.
	BLSPubKeyPrefix = "BLS-PUBKEY:"
)

// Certificate is the TBS data of spec §3 plus its threshold signature. The
// signature, once set, is never recomputed: a Certificate is created once
// and is immutable thereafter.
type Certificate struct {
	Serial         string
	SubjectCN      string
	IssuerCN       string
	NotBefore      time.Time
	NotAfter       time.Time
	SubjectPubBlob string
	IsCA           bool

	// Signature is the 288-byte aggregated G2 signature, absent on a TBS
	// that has not yet been signed.
	Signature []byte
}

// TBS returns the canonical byte encoding that is actually signed: the
// seven fields of spec §3 joined by "|", is_ca rendered as the literal "CA"
// or "EE", timestamps as decimal ASCII seconds.
func (c *Certificate) TBS() []byte {
	isCA := eeLiteral
	if c.IsCA {
		isCA = caLiteral
	}
	fields := []string{
		c.Serial,
		c.SubjectCN,
		c.IssuerCN,
		strconv.FormatInt(c.NotBefore.Unix(), 10),
		strconv.FormatInt(c.NotAfter.Unix(), 10),
		c.SubjectPubBlob,
		isCA,
	}
	return []byte(strings.Join(fields, fieldSep))
}

// ParseTBS is the inverse of TBS; parse(serialize(c)) == c is spec
// invariant I1.
func ParseTBS(tbs []byte) (*Certificate, error) {
	parts := strings.Split(string(tbs), fieldSep)
	if len(parts) != 7 {
		return nil, fmt.Errorf("%w: tbs has %d fields, want 7", errs.ErrChainBroken, len(parts))
	}
	nbf, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad not_before: %v", errs.ErrChainBroken, err)
	}
	naf, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad not_after: %v", errs.ErrChainBroken, err)
	}
	var isCA bool
	switch parts[6] {
	case caLiteral:
		isCA = true
	case eeLiteral:
		isCA = false
	default:
		return nil, fmt.Errorf("%w: bad is_ca literal %q", errs.ErrChainBroken, parts[6])
	}
	return &Certificate{
		Serial:         parts[0],
		SubjectCN:      parts[1],
		IssuerCN:       parts[2],
		NotBefore:      time.Unix(nbf, 0).UTC(),
		NotAfter:       time.Unix(naf, 0).UTC(),
		SubjectPubBlob: parts[5],
		IsCA:           isCA,
	}, nil
}

// EmbeddedMasterPK extracts the G1 master public key embedded in a CA
// certificate's subject field, stripping the BLS-PUBKEY: prefix. It fails
// with ErrBadIssuerKey if the prefix is absent or the remainder does not
// decode as a G1 point (spec invariant I3; §4.7).
func (c *Certificate) EmbeddedMasterPK() (curve.G1, error) {
	if !c.IsCA || !strings.HasPrefix(c.SubjectPubBlob, BLSPubKeyPrefix) {
		return curve.G1{}, errs.ErrBadIssuerKey
	}
	raw := strings.TrimPrefix(c.SubjectPubBlob, BLSPubKeyPrefix)
	pk, err := curve.DecodeG1([]byte(raw))
	if err != nil {
		return curve.G1{}, fmt.Errorf("%w: %v", errs.ErrBadIssuerKey, err)
	}
	return pk, nil
}

// PEMBlock renders this certificate (TBS || "||SIG||" || signature,
// base64-encoded) wrapped between the BEGIN/END markers. The whole payload
// is emitted as a single base64 line, matching the reference
// implementation's output.
func (c *Certificate) PEMBlock() string {
	raw := append(append(c.TBS(), []byte(sigSep)...), c.Signature...)
	body := base64.StdEncoding.EncodeToString(raw)
	return beginLine + "\n" + body + "\n" + endLine
}

// ParsePEMBlock parses a single BEGIN/END-delimited certificate block. It
// tolerates the body being split across multiple lines, as spec §6 requires
// of parsers.
func ParsePEMBlock(block string) (*Certificate, error) {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	if len(lines) < 3 {
		return nil, fmt.Errorf("%w: malformed PEM block", errs.ErrChainBroken)
	}
	if strings.TrimSpace(lines[0]) != beginLine {
		return nil, fmt.Errorf("%w: missing BEGIN marker", errs.ErrChainBroken)
	}
	last := len(lines) - 1
	if strings.TrimSpace(lines[last]) != endLine {
		return nil, fmt.Errorf("%w: missing END marker", errs.ErrChainBroken)
	}
	var body strings.Builder
	for _, l := range lines[1:last] {
		body.WriteString(strings.TrimSpace(l))
	}
	raw, err := base64.StdEncoding.DecodeString(body.String())
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64: %v", errs.ErrChainBroken, err)
	}
	idx := strings.Index(string(raw), sigSep)
	if idx < 0 {
		return nil, fmt.Errorf("%w: missing signature separator", errs.ErrChainBroken)
	}
	tbs := raw[:idx]
	sig := raw[idx+len(sigSep):]

	c, err := ParseTBS(tbs)
	if err != nil {
		return nil, err
	}
	c.Signature = sig
	return c, nil
}

// Bundle is an ordered certificate chain, leaf first, root last, as
// produced by the client issuer and consumed by the chain validator.
type Bundle []*Certificate

// Encode concatenates every certificate's PEM block, separated by newlines,
// in chain order (spec §3: "multiple certificates are concatenated to form
// a chain").
func (b Bundle) Encode() string {
	blocks := make([]string, len(b))
	for i, c := range b {
		blocks[i] = c.PEMBlock()
	}
	return strings.Join(blocks, "\n")
}

// ParseBundle splits concatenated PEM blocks back into an ordered chain.
func ParseBundle(data string) (Bundle, error) {
	var out Bundle
	remaining := data
	for {
		remaining = strings.TrimLeft(remaining, "\n\r\t ")
		if remaining == "" {
			break
		}
		start := strings.Index(remaining, beginLine)
		if start != 0 {
			return nil, fmt.Errorf("%w: expected BEGIN marker", errs.ErrChainBroken)
		}
		end := strings.Index(remaining, endLine)
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated PEM block", errs.ErrChainBroken)
		}
		end += len(endLine)
		cert, err := ParsePEMBlock(remaining[:end])
		if err != nil {
			return nil, err
		}
		out = append(out, cert)
		remaining = remaining[end:]
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty bundle", errs.ErrChainBroken)
	}
	return out, nil
}
