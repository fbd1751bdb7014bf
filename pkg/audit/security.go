// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventQuestionInjectionProbe is logged when libinjection flags a question.
	// Questions are never spliced into SQL, so this is a signal, not a block.
	EventQuestionInjectionProbe SecurityEventType = "question_injection_probe"
	// EventSQLBlocked is logged when generated SQL is refused before execution.
	EventSQLBlocked SecurityEventType = "sql_blocked"
	// EventSQLExecuted is logged for every generated query sent to the database.
	EventSQLExecuted SecurityEventType = "sql_executed"
)

// SecurityEvent represents an auditable security event.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	RequestID uuid.UUID         `json:"request_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// InjectionProbeDetails contains specifics of a flagged question.
type InjectionProbeDetails struct {
	Question    string `json:"question"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// BlockedSQLDetails describes generated SQL that was refused.
type BlockedSQLDetails struct {
	Stage         string   `json:"stage"` // generate | execute
	Reason        string   `json:"reason"`
	SQL           string   `json:"sql"` // literals redacted
	UnknownTables []string `json:"unknown_tables,omitempty"`
}

type contextKey int

const (
	requestIDKey contextKey = iota
	clientIPKey
)

// WithRequestID returns a context carrying the request ID for audit events.
func WithRequestID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID, or uuid.Nil.
func RequestIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(requestIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// WithClientIP returns a context carrying the caller's address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext returns the caller's address, or "".
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// SecurityAuditor logs security events for SIEM consumption.
// Events are logged in structured JSON format with appropriate severity levels.
// A nil *SecurityAuditor discards events.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
// The logger is automatically configured with "security_audit" namespace for easy
// filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

func (a *SecurityAuditor) newEvent(ctx context.Context, eventType SecurityEventType, severity string, details any) SecurityEvent {
	return SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		RequestID: RequestIDFromContext(ctx),
		ClientIP:  ClientIPFromContext(ctx),
		Details:   details,
		Severity:  severity,
	}
}

// LogInjectionProbe records a question that libinjection flagged.
// Logged at WARN: the question itself is harmless to the pipeline.
func (a *SecurityAuditor) LogInjectionProbe(ctx context.Context, details InjectionProbeDetails) {
	if a == nil {
		return
	}
	event := a.newEvent(ctx, EventQuestionInjectionProbe, "warning", details)

	// Ignoring error as marshaling known types should never fail
	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("SQL injection pattern in question",
		zap.String("event_json", string(eventJSON)),
		zap.String("request_id", event.RequestID.String()),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", event.Severity),
	)
}

// LogBlockedSQL records generated SQL refused by a statement or table guard.
// Blocks at execution time mean SQL reached the executor without passing
// generation-time validation, so they are logged at ERROR.
func (a *SecurityAuditor) LogBlockedSQL(ctx context.Context, details BlockedSQLDetails) {
	if a == nil {
		return
	}
	details.SQL = logging.SanitizeQuery(details.SQL)

	severity := "warning"
	if details.Stage == "execute" {
		severity = "critical"
	}
	event := a.newEvent(ctx, EventSQLBlocked, severity, details)
	eventJSON, _ := json.Marshal(event)

	fields := []zap.Field{
		zap.String("event_json", string(eventJSON)),
		zap.String("request_id", event.RequestID.String()),
		zap.String("stage", details.Stage),
		zap.String("reason", details.Reason),
		zap.Strings("unknown_tables", details.UnknownTables),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", severity),
	}
	if severity == "critical" {
		a.logger.Error("Generated SQL blocked", fields...)
		return
	}
	a.logger.Warn("Generated SQL blocked", fields...)
}

// LogSQLExecuted records a generated query sent to the database.
// Note: This can generate high log volume in production.
func (a *SecurityAuditor) LogSQLExecuted(ctx context.Context, sqlQuery string, tables []string) {
	if a == nil {
		return
	}
	event := a.newEvent(ctx, EventSQLExecuted, "info", map[string]any{
		"sql":    logging.SanitizeQuery(sqlQuery),
		"tables": tables,
	})
	eventJSON, _ := json.Marshal(event)

	a.logger.Info("Generated SQL executed",
		zap.String("event_json", string(eventJSON)),
		zap.String("request_id", event.RequestID.String()),
		zap.Strings("tables", tables),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", "info"),
	)
}
