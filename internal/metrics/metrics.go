// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "grow"

var (
	// CommandsSent counts hardware commands handed to the actuator sinks.
	CommandsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "control",
		Name:      "commands_sent_total",
		Help:      "Hardware channel commands dispatched, by channel and value.",
	}, []string{"channel", "value"})

	// SnapshotsSkipped counts control passes skipped on stale or duplicate data.
	SnapshotsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "control",
		Name:      "snapshots_skipped_total",
		Help:      "Control passes skipped, by reason.",
	}, []string{"reason"})

	// ReadingsParsed counts sensor frames accepted from serial endpoints.
	ReadingsParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transport",
		Name:      "readings_total",
		Help:      "Parsed sensor readings, by source and kind.",
	}, []string{"source", "kind"})

	// FanSpeed is the last primary fan speed sent.
	FanSpeed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "control",
		Name:      "fan_speed_percent",
		Help:      "Last primary fan speed dispatched.",
	})

	// IrrigationSequences counts sequence outcomes.
	IrrigationSequences = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "schedule",
		Name:      "irrigation_sequences_total",
		Help:      "Irrigation sequences, by outcome.",
	}, []string{"outcome"})

	// JournalDropped counts log records dropped because the journal queue was full.
	JournalDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "journal",
		Name:      "dropped_total",
		Help:      "Log records dropped on a full queue.",
	})
)
