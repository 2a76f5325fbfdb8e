package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// LoginOutcomes counts the terminal outcome of every SSO callback,
	// labelled by provider and outcome (created|updated|conflict|denied|
	// missing_email|error).
	LoginOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ssogate", Name: "login_outcomes_total", Help: "Terminal SSO callback outcomes by provider."},
		[]string{"provider", "outcome"},
	)
	TokensIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ssogate", Name: "tokens_issued_total", Help: "Number of bearer credentials issued by provider."},
		[]string{"provider"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ssogate", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ssogate", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(LoginOutcomes)
	reg.MustRegister(TokensIssued)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
