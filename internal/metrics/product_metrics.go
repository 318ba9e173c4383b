package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Variant operation labels.
const (
	VariantCreated = "created"
	VariantUpdated = "updated"
	VariantDeleted = "deleted"
)

var (
	// ProductsCreated is a Prometheus counter for tracking the total number of products created.
	ProductsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_products_created_total",
		Help: "The total number of products created",
	})

	// ProductsUpdated counts committed product updates.
	ProductsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_products_updated_total",
		Help: "The total number of products updated",
	})

	// ProductsDeleted is a Prometheus counter for tracking the total number of products soft-deleted.
	ProductsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_products_deleted_total",
		Help: "The total number of products deleted",
	})

	// VariantOperations counts committed variant writes by operation.
	VariantOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_variant_operations_total",
		Help: "The total number of variant writes, by operation",
	}, []string{"operation"})

	// Conflicts counts rejected slug and sku values.
	Conflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_uniqueness_conflicts_total",
		Help: "The total number of uniqueness conflicts, by field",
	}, []string{"field"})

	// OutboxEvents counts outbox events handled by the publisher worker, by resulting status.
	OutboxEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_outbox_events_total",
		Help: "The total number of outbox events handled, by resulting status",
	}, []string{"status"})
)
