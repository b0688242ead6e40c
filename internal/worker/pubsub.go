package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/filegrid/filegrid/internal/file"
	"github.com/filegrid/filegrid/internal/gdpr"
)

// Scan pipeline job types.
const (
	JobMalwareScanResult = "malware_scan_result"
	JobPIIClassification = "pii_classification"
)

// ScanMessage is the envelope published by the scanning pipeline.
type ScanMessage struct {
	JobType string `json:"job_type"`
	FileID  int64  `json:"file_id"`

	// Status is the malware verdict (CLEAN/INFECTED/FAILED).
	Status string `json:"status,omitempty"`

	// RiskLevel is the PII classification.
	RiskLevel string `json:"risk_level,omitempty"`

	// Confidence is the classifier's confidence, informational only.
	Confidence float64 `json:"confidence,omitempty"`
}

// PubSubConfig holds configuration for the scan result consumer.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Applier          *ResultApplier
	Logger           zerolog.Logger
}

// PubSubHandler consumes scan pipeline results.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	applier          *ResultApplier
	logger           zerolog.Logger
}

// NewPubSubHandler creates a new scan result consumer.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		applier:          cfg.Applier,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing messages. Blocks until the context ends.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting scan result consumer")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	var scanMsg ScanMessage
	if err := json.Unmarshal(msg.Data, &scanMsg); err != nil {
		// Malformed payloads never become valid; ack to drop.
		logger.Error().Err(err).Msg("failed to parse scan message")
		msg.Ack()
		return
	}

	var err error
	switch scanMsg.JobType {
	case JobMalwareScanResult:
		err = h.applier.ApplyMalwareResult(ctx, scanMsg.FileID, file.MalwareStatus(scanMsg.Status))
	case JobPIIClassification:
		err = h.applier.ApplyClassification(ctx, scanMsg.FileID, gdpr.RiskLevel(scanMsg.RiskLevel))
	default:
		logger.Warn().Str("job_type", scanMsg.JobType).Msg("unknown job type")
		msg.Ack()
		return
	}

	if err != nil {
		if IsFileGone(err) || errors.Is(err, ErrBadResult) {
			logger.Warn().Err(err).Int64("file_id", scanMsg.FileID).Msg("dropping unusable scan result")
			msg.Ack()
			return
		}
		logger.Error().Err(err).Int64("file_id", scanMsg.FileID).Msg("failed to apply scan result")
		msg.Nack()
		return
	}

	logger.Debug().
		Str("job_type", scanMsg.JobType).
		Int64("file_id", scanMsg.FileID).
		Msg("scan result applied")
	msg.Ack()
}
