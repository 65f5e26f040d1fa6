package domain

import (
	"time"
)

// RunState representa o passo da máquina de estados de uma execução
type RunState string

const (
	RunStateInit             RunState = "INIT"
	RunStateEnsureSchema     RunState = "ENSURE_SCHEMA"
	RunStateSeedIfEmpty      RunState = "SEED_IF_EMPTY"
	RunStateExtractNormalize RunState = "EXTRACT_NORMALIZE"
	RunStateLoad             RunState = "LOAD"
	RunStateMerge            RunState = "MERGE"
	RunStateEmptyStaging     RunState = "EMPTY_STAGING"
	RunStateDone             RunState = "DONE"
)

// RunReport resume uma execução do pipeline de reconciliação
type RunReport struct {
	ID            string    `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	State         RunState  `json:"state"`
	Extracted     int       `json:"extracted"`
	Normalized    int       `json:"normalized"`
	Fallback      int       `json:"fallback"`
	Skipped       int       `json:"skipped"`
	Staged        int       `json:"staged"`
	Batches       int       `json:"batches"`
	FailedBatches int       `json:"failed_batches"`
	RowErrors     int       `json:"row_errors"`
	Merged        int64     `json:"merged"`
	Error         string    `json:"error,omitempty"`
}

func NewRunReport(id string, startedAt time.Time) *RunReport {
	return &RunReport{
		ID:        id,
		StartedAt: startedAt,
		State:     RunStateInit,
	}
}

// Succeeded indica se a execução chegou ao estado final sem erro
func (r *RunReport) Succeeded() bool {
	return r != nil && r.State == RunStateDone && r.Error == ""
}

// Duration retorna o tempo decorrido da execução
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
