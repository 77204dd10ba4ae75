package model

import "time"

// Ingestion job statuses. running is the only non-terminal state.
const (
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// JobTypeKeywordIngest is the only job type the runner creates.
const JobTypeKeywordIngest = "keyword_ingest"

// IngestionJob is the audit row for one ingestion run.
type IngestionJob struct {
	ID             string      `json:"id"`
	Status         string      `json:"status"`
	JobType        string      `json:"jobType"`
	Trigger        string      `json:"trigger"`
	QuotaUnitsUsed int         `json:"quotaUnitsUsed"`
	Metadata       JobMetadata `json:"metadata"`
	ErrorMessage   *string     `json:"errorMessage,omitempty"`
	StartedAt      time.Time   `json:"startedAt"`
	CompletedAt    *time.Time  `json:"completedAt,omitempty"`
}

// JobMetadata is persisted as JSON alongside the job row.
type JobMetadata struct {
	KeywordsProcessed int               `json:"keywordsProcessed"`
	VideosUpserted    int               `json:"videosUpserted"`
	ChannelsUpserted  int               `json:"channelsUpserted"`
	Providers         map[string]string `json:"providers"`
	StoppedForQuota   bool              `json:"stoppedForQuota"`
	Errors            []string          `json:"errors"`
}

// IngestRunResponse is returned by the trigger endpoint.
type IngestRunResponse struct {
	JobID             string   `json:"jobId"`
	Status            string   `json:"status"`
	QuotaUnitsUsed    int      `json:"quotaUnitsUsed"`
	KeywordsProcessed int      `json:"keywordsProcessed"`
	VideosUpserted    int      `json:"videosUpserted"`
	StoppedForQuota   bool     `json:"stoppedForQuota"`
	Errors            []string `json:"errors"`
}
