package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CommandsTotal counts commands dispatched to agents by function name.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drover_commands_total",
		Help: "Total commands dispatched to agents",
	}, []string{"func"})

	// RepliesTotal counts transport replies by classified kind. The user-facing
	// API collapses timeout and down into "offline"; this keeps them apart.
	RepliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drover_transport_replies_total",
		Help: "Transport replies by classified kind (ok, timeout, down, data)",
	}, []string{"kind"})

	// BusReloads counts principal reconciliations of the bus configuration.
	BusReloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drover_bus_reloads_total",
		Help: "Total bus configuration reloads",
	})

	// PendingActionsCreated counts durable pending-action records by type.
	PendingActionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drover_pending_actions_created_total",
		Help: "Pending actions created by action type",
	}, []string{"type"})

	// HistoryPruned counts agent history rows removed by the retention sweep.
	HistoryPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drover_history_pruned_total",
		Help: "Agent history rows deleted by retention pruning",
	})
)
