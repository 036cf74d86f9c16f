package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonasweber/staffwerk/pkg/core/model"
	"github.com/jonasweber/staffwerk/pkg/db"
)

// ReplyStore defines the database operations needed for reply ingestion.
type ReplyStore interface {
	GetEvent(ctx context.Context, id string) (*db.Event, error)
	GetEmployee(ctx context.Context, id string) (*db.Employee, error)
	UpsertEmployeeEventStatus(ctx context.Context, status db.EmployeeEventStatus) error
}

// Reply is an inbound free-text response to an invitation.
type Reply struct {
	EmployeeID string
	EventID    string
	Body       string
	Method     string
}

// ReplyResult reports how a reply was interpreted and whether it changed
// anything.
type ReplyResult struct {
	Intent  model.ReplyIntent
	Updated bool
}

// IngestReply maps the reply text to an intent and records the employee's
// response. Ambiguous replies are reported back without mutating status.
func IngestReply(ctx context.Context, store ReplyStore, logger *zap.Logger, reply Reply) (*ReplyResult, error) {
	intent := model.ParseReplyIntent(reply.Body)
	if intent == model.ReplyUnknown {
		logger.Info("Ambiguous reply ignored",
			zap.String("employee_id", reply.EmployeeID),
			zap.String("event_id", reply.EventID))
		return &ReplyResult{Intent: intent}, nil
	}

	if _, err := store.GetEmployee(ctx, reply.EmployeeID); err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}
	if _, err := store.GetEvent(ctx, reply.EventID); err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}

	status := model.ParticipationAvailable
	if intent == model.ReplyUnavailable {
		status = model.ParticipationUnavailable
	}

	now := time.Now()
	if err := store.UpsertEmployeeEventStatus(ctx, db.EmployeeEventStatus{
		EmployeeID:     reply.EmployeeID,
		EventID:        reply.EventID,
		Status:         status,
		RespondedAt:    &now,
		ResponseMethod: reply.Method,
		UpdatedAt:      now,
	}); err != nil {
		return nil, fmt.Errorf("failed to record reply: %w", err)
	}

	logger.Info("Reply recorded",
		zap.String("employee_id", reply.EmployeeID),
		zap.String("event_id", reply.EventID),
		zap.String("intent", string(intent)))
	return &ReplyResult{Intent: intent, Updated: true}, nil
}
