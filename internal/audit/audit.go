package audit

import (
	"context"

	"github.com/aviator-hackers/backend-avapk/pkg/log"
)

// Audit actions for the support relay.
const (
	ActionJoin              = "relay.join"
	ActionAdminJoin         = "relay.admin_join"
	ActionSelectSession     = "relay.select_session"
	ActionSendMessage       = "relay.send_message"
	ActionMessagesRead      = "relay.messages_read"
	ActionDuplicateIdentity = "relay.duplicate_identity"
	ActionForbidden         = "relay.forbidden"
	ActionDisconnect        = "relay.disconnect"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, sessionID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldSessionID, sessionID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, sessionID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldSessionID, sessionID).
		Str(FieldDetail, detail).
		Msg(msg)
}
