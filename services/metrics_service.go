package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"tempbot-keeper/internal/config"
	"tempbot-keeper/internal/logger"
)

var (
	launchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempbot_launch_total",
			Help: "Total launch attempts by result",
		},
		[]string{"result"},
	)

	discoveryAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tempbot_discovery_attempts_total",
			Help: "Total polls of the tunnel control API",
		},
	)
)

func init() {
	prometheus.MustRegister(launchTotal)
	prometheus.MustRegister(discoveryAttempts)
}

// RecordLaunchResult 记录一次启动结果(started/discovery_failed/env_failed)
func RecordLaunchResult(result string) {
	launchTotal.WithLabelValues(result).Inc()
}

func RecordDiscoveryAttempt() {
	discoveryAttempts.Inc()
}

/**
 * Push collected metrics to the configured Pushgateway
 * @returns {error} Returns error if push fails, nil on success
 * @description
 * - Disabled when no pushgateway address is configured
 * - Push failures are logged by the caller and never abort a launch
 */
func PushMetrics() error {
	addr := config.Config.Metrics.Pushgateway
	if addr == "" {
		return nil
	}
	if err := push.New(addr, "tempbot_keeper").Gatherer(prometheus.DefaultGatherer).Push(); err != nil {
		logger.Warnf("Failed to push metrics to %s: %v", addr, err)
		return err
	}
	return nil
}
