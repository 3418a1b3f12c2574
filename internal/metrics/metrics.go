// Package metrics exposes counters for a CA node's operations, adapted from
// drand's metrics package (same registry-per-concern pattern, scaled down to
// this system's four RPCs and client flows).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// NodeMetrics is the registry a single CA node's process registers its
// counters into.
var NodeMetrics = prometheus.NewRegistry()

// ClientMetrics is the registry the issuer/revoker client flows register
// their counters into.
var ClientMetrics = prometheus.NewRegistry()

var (
	// PartialsSigned counts successful SignPartial calls, labeled by level.
	PartialsSigned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threshca_partials_signed_total",
		Help: "Number of partial certificate signatures produced by this node.",
	}, []string{"level"})

	// RevokePartialsSigned counts successful SignRevokePartial calls.
	RevokePartialsSigned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threshca_revoke_partials_signed_total",
		Help: "Number of partial revocation signatures produced by this node.",
	}, []string{"level"})

	// RevocationsApplied counts ApplyRevocation calls that verified and
	// mutated the local revocation set.
	RevocationsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threshca_revocations_applied_total",
		Help: "Number of threshold revocation proofs this node has accepted.",
	}, []string{"level"})

	// RevocationsRejected counts ApplyRevocation calls with a forged or
	// mismatched proof.
	RevocationsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threshca_revocations_rejected_total",
		Help: "Number of threshold revocation proofs this node has rejected.",
	}, []string{"level"})

	// OCSPQueries counts OCSP lookups answered, labeled by verdict.
	OCSPQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threshca_ocsp_queries_total",
		Help: "Number of OCSP queries answered by this node, by verdict.",
	}, []string{"level", "status"})

	// ClientIssuances counts issuance attempts, labeled by outcome.
	ClientIssuances = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threshca_client_issuances_total",
		Help: "Number of client certificate issuance attempts, by outcome.",
	}, []string{"outcome"})

	// ClientRevocations counts revocation attempts, labeled by outcome.
	ClientRevocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "threshca_client_revocations_total",
		Help: "Number of client revocation attempts, by outcome.",
	}, []string{"outcome"})
)

func init() {
	NodeMetrics.MustRegister(
		PartialsSigned,
		RevokePartialsSigned,
		RevocationsApplied,
		RevocationsRejected,
		OCSPQueries,
	)
	ClientMetrics.MustRegister(
		ClientIssuances,
		ClientRevocations,
	)
}
