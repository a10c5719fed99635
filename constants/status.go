package constants

// JobStatus is the canonical status for rows in structure_results and queued jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued     JobStatus = "QUEUED"     // waiting for a worker
	JobStatusRunning    JobStatus = "RUNNING"    // in progress
	JobStatusStructured JobStatus = "STRUCTURED" // pipeline completed
	JobStatusCorrected  JobStatus = "CORRECTED"  // a reviewer saved corrections
	JobStatusFailed     JobStatus = "FAILED"     // terminal failure
)

// TotalsStatus is the outcome of totals reconciliation.
type TotalsStatus string

const (
	TotalsOK           TotalsStatus = "ok"
	TotalsMismatch     TotalsStatus = "mismatch"
	TotalsInsufficient TotalsStatus = "insufficient"
	TotalsMissing      TotalsStatus = "missing"
)

// Anomaly codes emitted by the fingerprint stage.
const (
	AnomalyAnchorExcess       = "anchor_excess"
	AnomalyTableLowConfidence = "table_low_confidence"
	AnomalyTotalsMissing      = "totals_missing"
	AnomalyTotalsMismatch     = "totals_mismatch"
)
