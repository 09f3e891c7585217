package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Contadores e histogramas compartilhados pelos serviços de aposta on-chain.
var (
	// Mirror (bet-service / reconciler)
	MirrorWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "suibets",
		Subsystem: "mirror",
		Name:      "writes_total",
		Help:      "Escritas no espelho por resultado (created, duplicate, failed, mismatch)",
	}, []string{"kind", "result"})

	MirrorPendingPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "suibets",
		Subsystem: "mirror",
		Name:      "pending_published_total",
		Help:      "Eventos de sync pendente publicados no Kafka",
	}, []string{"result"})

	// Placement (cliente)
	Placements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "suibets",
		Subsystem: "placement",
		Name:      "attempts_total",
		Help:      "Tentativas de aposta por estado terminal",
	}, []string{"state"})

	ConfirmFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "suibets",
		Subsystem: "placement",
		Name:      "confirm_fallback_total",
		Help:      "Consultas wait-for-transaction por resultado (found, unlinked, error)",
	}, []string{"result"})

	// Reconciliation
	ReconcileRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "suibets",
		Subsystem: "reconcile",
		Name:      "wallet_runs_total",
		Help:      "Carteiras reconciliadas contra a chain",
	})

	ReconcileRestored = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "suibets",
		Subsystem: "reconcile",
		Name:      "restored_total",
		Help:      "Linhas espelho recriadas a partir da chain",
	})

	ReconcileMismatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "suibets",
		Subsystem: "reconcile",
		Name:      "mismatches_total",
		Help:      "Linhas espelho divergentes do objeto on-chain (stake/odds)",
	})

	ReconcileErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "suibets",
		Subsystem: "reconcile",
		Name:      "errors_total",
		Help:      "Erros da reconciliação por estágio",
	}, []string{"stage"})

	// Sui RPC
	SuiRPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "suibets",
		Subsystem: "sui_rpc",
		Name:      "requests_total",
		Help:      "Chamadas JSON-RPC ao fullnode por método e resultado",
	}, []string{"method", "result"})

	SuiRPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "suibets",
		Subsystem: "sui_rpc",
		Name:      "request_duration_seconds",
		Help:      "Latência das chamadas JSON-RPC ao fullnode por método",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)
