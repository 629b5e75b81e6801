package models

import "time"

// Audit actions recorded for security and content changes.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionRegister       = "REGISTER"
	AuditActionUserCreate     = "USER_CREATE"
	AuditActionUserUpdate     = "USER_UPDATE"
	AuditActionUserDelete     = "USER_DELETE"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionCreate         = "CREATE"
	AuditActionUpdate         = "UPDATE"
	AuditActionDelete         = "DELETE"
	AuditActionPublish        = "PUBLISH"
	AuditActionSubmit         = "SUBMIT"
	AuditActionExportDownload = "EXPORT_DOWNLOAD"
)

// Audited resources.
const (
	AuditResourceAuth      = "auth"
	AuditResourceUsers     = "users"
	AuditResourceCampaigns = "campaigns"
	AuditResourceMembers   = "campaign_members"
	AuditResourceForms     = "forms"
	AuditResourceQuestions = "questions"
	AuditResourceSubmits   = "submissions"
	AuditResourceExports   = "exports"
)

// AuditLog is one row of the audit trail. OldValues and NewValues hold JSON
// snapshots of the record before and after the change.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
