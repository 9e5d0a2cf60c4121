package application

// SyncResult counts what one reconciliation pass did.
type SyncResult struct {
	Routed   int
	Deferred int
	Pruned   int
	Skipped  bool
}
