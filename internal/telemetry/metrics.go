/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SearchesTotal counts completed catalog searches by personalization mode.
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shellff_catalog_searches_total",
			Help: "Completed catalog searches.",
		},
		[]string{"personalized"},
	)

	// SearchDuration observes end to end catalog search latency.
	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shellff_catalog_search_duration_seconds",
			Help:    "Catalog search latency.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RefreshTasksScheduled counts refresh task schedule calls by reason.
	RefreshTasksScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shellff_refresh_tasks_scheduled_total",
			Help: "Refresh tasks scheduled (including replacements).",
		},
		[]string{"reason"},
	)

	// RefreshTasksDispatched counts drained tasks handed to the dispatcher.
	RefreshTasksDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shellff_refresh_tasks_dispatched_total",
			Help: "Refresh tasks drained and dispatched.",
		},
	)

	// RefreshQueueDepth tracks the number of pending deduplicated tasks.
	RefreshQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shellff_refresh_queue_depth",
			Help: "Pending deduplicated refresh tasks.",
		},
	)

	// APIRequestsTotal counts HTTP requests by method, route, and status.
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shellff_api_requests_total",
			Help: "HTTP requests served.",
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shellff_api_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	// APIActiveConnections tracks in-flight HTTP requests.
	APIActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "shellff_api_active_connections",
			Help: "In-flight HTTP requests.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SearchesTotal,
		SearchDuration,
		RefreshTasksScheduled,
		RefreshTasksDispatched,
		RefreshQueueDepth,
		APIRequestsTotal,
		APIRequestDuration,
		APIActiveConnections,
	)
}

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
