package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
)

const subjectPrefix = "ingest.jobs."

// JobEvent is the payload published when an ingestion job finishes.
type JobEvent struct {
	JobID             string    `json:"jobId"`
	Status            string    `json:"status"`
	Trigger           string    `json:"trigger"`
	QuotaUnitsUsed    int       `json:"quotaUnitsUsed"`
	KeywordsProcessed int       `json:"keywordsProcessed"`
	VideosUpserted    int       `json:"videosUpserted"`
	StoppedForQuota   bool      `json:"stoppedForQuota"`
	ErrorCount        int       `json:"errorCount"`
	FinishedAt        time.Time `json:"finishedAt"`
}

// NewJobEvent summarizes a finished job.
func NewJobEvent(job model.IngestionJob) JobEvent {
	finished := time.Now().UTC()
	if job.CompletedAt != nil {
		finished = *job.CompletedAt
	}
	return JobEvent{
		JobID:             job.ID,
		Status:            job.Status,
		Trigger:           job.Trigger,
		QuotaUnitsUsed:    job.QuotaUnitsUsed,
		KeywordsProcessed: job.Metadata.KeywordsProcessed,
		VideosUpserted:    job.Metadata.VideosUpserted,
		StoppedForQuota:   job.Metadata.StoppedForQuota,
		ErrorCount:        len(job.Metadata.Errors),
		FinishedAt:        finished,
	}
}

// Subject returns the NATS subject a job outcome is published on.
func Subject(status string) string {
	return subjectPrefix + status
}

// Publisher publishes job outcomes to NATS. A nil or unconnected Publisher
// drops events silently, so ingestion never depends on the broker.
type Publisher struct {
	nc *nats.Conn
}

// Connect dials NATS. An empty url yields a disabled publisher.
func Connect(url string) (*Publisher, error) {
	if url == "" {
		log.Info().Msg("nats: no URL configured, job events disabled")
		return &Publisher{}, nil
	}
	nc, err := nats.Connect(url,
		nats.Name("outlier-ingest"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	log.Info().Str("url", nc.ConnectedUrlRedacted()).Msg("nats: connected, job events enabled")
	return &Publisher{nc: nc}, nil
}

// PublishJob emits the job outcome. Failures are logged, not returned.
func (p *Publisher) PublishJob(ctx context.Context, job model.IngestionJob) {
	if p == nil || p.nc == nil {
		return
	}
	data, err := json.Marshal(NewJobEvent(job))
	if err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("nats: encode job event")
		return
	}
	if err := p.nc.Publish(Subject(job.Status), data); err != nil {
		log.Warn().Err(err).Str("job_id", job.ID).Msg("nats: publish job event failed")
	}
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.nc != nil && p.nc.IsConnected()
}

// Close flushes pending events and closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}
