package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arazshah/callyou/internal/infra/config"
)

// Provider holds the service-level Prometheus collectors.
type Provider struct {
	loginAttempts     *prometheus.CounterVec
	rateLimitRejected *prometheus.CounterVec
}

// Attach registers service metrics with the default registerer.
func Attach(cfg *config.AppConfig) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	loginAttempts := promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callyou",
		Subsystem: "auth",
		Name:      "login_attempts_total",
		Help:      "Total login attempts partitioned by outcome.",
	}, []string{"outcome"})

	rateLimitRejected := promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callyou",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter partitioned by rule.",
	}, []string{"rule"})

	return &Provider{
		loginAttempts:     loginAttempts,
		rateLimitRejected: rateLimitRejected,
	}, nil
}

// RecordLoginAttempt increments the login counter for the given outcome.
func (p *Provider) RecordLoginAttempt(outcome string) {
	if p == nil {
		return
	}
	p.loginAttempts.WithLabelValues(outcome).Inc()
}

// RecordRateLimited increments the rejection counter for a rule.
func (p *Provider) RecordRateLimited(rule string) {
	if p == nil {
		return
	}
	p.rateLimitRejected.WithLabelValues(rule).Inc()
}
