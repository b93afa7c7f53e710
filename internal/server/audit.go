package server

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type AuditLogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Method     string    `json:"method"`
	Route      string    `json:"route"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	OrderID    string    `json:"order_id,omitempty"`
	Date       string    `json:"date,omitempty"`
	Request    string    `json:"request,omitempty"`
	Response   string    `json:"response,omitempty"`
}

// AuditSink receives flushed batches. Implementations must be safe for
// concurrent use by the manager's workers.
type AuditSink interface {
	Write(ctx context.Context, batch []AuditLogEntry) error
}

type ZapAuditSink struct {
	logger *zap.Logger
}

func NewZapAuditSink(logger *zap.Logger) *ZapAuditSink {
	return &ZapAuditSink{logger: logger.Named("audit")}
}

func (s *ZapAuditSink) Write(_ context.Context, batch []AuditLogEntry) error {
	for _, e := range batch {
		s.logger.Info("audit",
			zap.Time("timestamp", e.Timestamp),
			zap.String("method", e.Method),
			zap.String("route", e.Route),
			zap.String("path", e.Path),
			zap.Int("status_code", e.StatusCode),
			zap.String("order_id", e.OrderID),
			zap.String("date", e.Date),
			zap.String("request", e.Request),
			zap.String("response", e.Response),
		)
	}
	return nil
}
