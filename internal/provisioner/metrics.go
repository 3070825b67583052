package provisioner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	provisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_provisioner_provision_total",
		Help: "Provisioning attempts by provider and result.",
	}, []string{"provider", "result"})

	provisionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_provisioner_provision_duration_seconds",
		Help:    "Wall clock duration of provisioning attempts.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"provider"})

	destroyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_provisioner_destroy_total",
		Help: "Teardown attempts by provider and result.",
	}, []string{"provider", "result"})
)
