package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// CrawlRun is the persisted record of one crawl from start URL to shutdown.
type CrawlRun struct {
	ID             int64      `json:"id" db:"id"`
	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	FinishedAt     *time.Time `json:"finished_at" db:"finished_at"`
	Status         RunStatus  `json:"status" db:"status"`
	PagesProcessed int        `json:"pages_processed" db:"pages_processed"`
	RecordsStored  int        `json:"records_stored" db:"records_stored"`
	UniqueURLs     int        `json:"unique_urls" db:"unique_urls"`
	FailedRecords  int        `json:"failed_records" db:"failed_records"`
	ErrorsCount    int        `json:"errors_count" db:"errors_count"`
	ErrorMessage   string     `json:"error_message,omitempty" db:"error_message"`
}

// RunSummary is what a finished run reports back to the caller.
type RunSummary struct {
	RecordsStored  int       `json:"records_stored"`
	UniqueURLs     int       `json:"unique_urls"`
	PagesProcessed int       `json:"pages_processed"`
	FailedRecords  int       `json:"failed_records"`
	Status         RunStatus `json:"status"`
	ErrorMessage   string    `json:"error_message,omitempty"`
}

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// CrawlLog is a structured log row attached to a run.
type CrawlLog struct {
	ID        int64     `json:"id" db:"id"`
	RunID     *int64    `json:"run_id" db:"run_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Level     LogLevel  `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
}
