package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"
	FieldGuildID       = "guild_id"
	FieldUserID        = "user_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Track / queue fields
	FieldTrackTitle  = "track_title"
	FieldSourceTag   = "source_tag"
	FieldIdentityKey = "identity_key"
	FieldRevision    = "revision"
	FieldPosition    = "position"
	FieldQueueLen    = "queue_len"

	// Error classification
	FieldErrKind = "err_kind"

	// Path fields
	FieldPath = "path"
)
