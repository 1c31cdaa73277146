// Package metrics provides Prometheus metrics for Drive Nest.
// Counters, gauges and histograms for uploads, batches, storage and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Uploads ────────────────────────────────────────────────────────────────

// UploadsActive tracks transfers currently holding a slot.
var UploadsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "drivenest",
	Name:      "uploads_active",
	Help:      "Number of uploads currently transferring.",
})

// UploadsQueued tracks uploads waiting for a slot.
var UploadsQueued = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "drivenest",
	Name:      "uploads_queued",
	Help:      "Number of uploads waiting for a transfer slot.",
})

// UploadsCompleted tracks finished uploads by terminal status.
var UploadsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "drivenest",
	Name:      "uploads_completed_total",
	Help:      "Total finished uploads by status.",
}, []string{"status"})

// UploadsRejected tracks files refused before queueing.
var UploadsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "drivenest",
	Name:      "uploads_rejected_total",
	Help:      "Total files rejected by validation, by reason.",
}, []string{"reason"})

// BytesUploaded tracks bytes stored by successful uploads.
var BytesUploaded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "drivenest",
	Name:      "upload_bytes_total",
	Help:      "Total bytes stored by successful uploads.",
})

// UploadDuration tracks transfer time from admission to completion.
var UploadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "drivenest",
	Name:      "upload_duration_seconds",
	Help:      "Transfer duration in seconds.",
	Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
}, []string{"status"})

// UploadWait tracks time from submission to admission.
var UploadWait = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "drivenest",
	Name:      "upload_wait_seconds",
	Help:      "Time from submission to transfer start.",
	Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
})

// BatchesCompleted tracks batches whose every task is terminal.
var BatchesCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "drivenest",
	Name:      "batches_completed_total",
	Help:      "Total completed upload batches.",
})

// ProtocolViolations tracks internal invariant breaches.
var ProtocolViolations = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "drivenest",
	Name:      "protocol_violations_total",
	Help:      "Upload bookkeeping invariant violations (bugs).",
})

// ─── Storage ────────────────────────────────────────────────────────────────

// StorageUsedBytes tracks bytes recorded as stored.
var StorageUsedBytes = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "drivenest",
	Name:      "storage_used_bytes",
	Help:      "Bytes stored by successful uploads.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "drivenest",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// HealthRecoveries tracks auto-recovery attempts.
var HealthRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "drivenest",
	Name:      "health_recoveries_total",
	Help:      "Total auto-recovery attempts per check.",
}, []string{"check"})
