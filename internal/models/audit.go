package models

import "time"

// Audited actions.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionSignup         = "SIGNUP"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionRecharge       = "WALLET_RECHARGE"
	AuditActionSubmit         = "APPLICATION_SUBMIT"
	AuditActionStatusChange   = "APPLICATION_STATUS"
	AuditActionAnalyze        = "CIRCULAR_ANALYZE"
)

// AuditLog is one row of the audit trail. Details holds a JSON document
// describing the change.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	Details    []byte    `db:"details" json:"details,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
