package domain

import "time"

// AuditRecordEvent is the message published by the API when a record is
// submitted and consumed by the persistence worker.
type AuditRecordEvent struct {
	EventType string      `json:"event_type"`
	Record    AuditRecord `json:"record"`
	Timestamp time.Time   `json:"timestamp"`
}

const (
	EventAuditRecordCreated      = "audit_record.created"
	EventAuditRecordManualUpdate = "audit_record.manual_update"
)
