package alerting

import "github.com/VictoriaMetrics/metrics"

var (
	alertsSent         = metrics.NewCounter("alerts_sent_total")
	pushSent           = metrics.NewCounter("push_sent_total")
	pushFailures       = metrics.NewCounter("push_failures_total")
	annotationFailures = metrics.NewCounter("annotation_failures_total")
)
