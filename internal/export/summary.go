package export

import "time"

// Run statuses.
const (
	StatusSuccess             = "success"
	StatusCompletedWithErrors = "completed_with_errors"
	StatusFailed              = "failed"
)

// PartitionFailure records one partition that could not be dumped.
type PartitionFailure struct {
	Partition string `json:"partition"`
	Path      string `json:"path,omitempty"`
	Category  string `json:"category"`
	Error     string `json:"error"`
}

// Summary reports the outcome of one dump run.
type Summary struct {
	RunID              string             `json:"run_id"`
	Status             string             `json:"status"`
	StartedAt          time.Time          `json:"started_at"`
	CompletedAt        time.Time          `json:"completed_at"`
	DurationSeconds    float64            `json:"duration_seconds"`
	Partitioned        bool               `json:"partitioned"`
	PartitionsTotal    int                `json:"partitions_total"`
	PartitionsExported int                `json:"partitions_exported"`
	PartitionsSkipped  int                `json:"partitions_skipped"`
	PartitionsFailed   int                `json:"partitions_failed"`
	FilesWritten       int                `json:"files_written"`
	RowsExported       int64              `json:"rows_exported"`
	RowsPerSecond      float64            `json:"rows_per_second"`
	Failures           []PartitionFailure `json:"failures,omitempty"`
}

// OK reports whether every partition was dumped without error.
func (s *Summary) OK() bool {
	return s.Status == StatusSuccess
}

func (s *Summary) finish(start time.Time) {
	s.CompletedAt = time.Now()
	s.DurationSeconds = s.CompletedAt.Sub(start).Seconds()
	if s.DurationSeconds > 0 {
		s.RowsPerSecond = float64(s.RowsExported) / s.DurationSeconds
	}
}
