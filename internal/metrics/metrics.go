// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItemTransitions counts committed item status changes.
	ItemTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_item_transitions_total",
		Help: "Inventory item status transitions, by source and target status.",
	}, []string{"from", "to"})

	// ComponentReplacements counts replace-component workflows by outcome.
	ComponentReplacements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_component_replacements_total",
		Help: "Component replacement workflows, by result.",
	}, []string{"result"})

	// UnitOfWorkConflicts counts units of work rejected for concurrent modification.
	UnitOfWorkConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleet_unit_of_work_conflicts_total",
		Help: "Units of work aborted because of a concurrent write.",
	})

	// Notifications counts dispatched notifications by result.
	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleet_notifications_total",
		Help: "Notifications handed to dispatchers, by result.",
	}, []string{"result"})
)

// Result label values.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultDropped = "dropped"
)
