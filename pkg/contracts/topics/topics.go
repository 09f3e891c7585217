package topics

const (
	// Apostas espelhadas com sucesso no Postgres
	BetMirrored = "bet_mirrored"

	// Apostas confirmadas on-chain cujo espelho falhou (sync pendente)
	BetMirrorPending = "bet_mirror_pending"

	// DLQs
	BetMirrorPendingDLQ = "bet_mirror_pending_dlq"
)
