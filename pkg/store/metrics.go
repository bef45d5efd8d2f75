package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyhub_store_ops_total",
		Help: "Store operations by kind.",
	}, []string{"op"})

	watchersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "studyhub_store_watchers",
		Help: "Currently registered subtree watchers.",
	})

	watchDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studyhub_store_watch_drops_total",
		Help: "Snapshots dropped because a watcher channel was full.",
	})
)
