package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType is the standardized key for machine-readable event names.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized key for the suggested next step after a failure.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldIdentity is the standardized key for content identities (<sha256>_<size>).
	FieldIdentity = "identity"
	// FieldPath is the standardized key for filesystem paths.
	FieldPath = "path"
	// FieldSessionID is the standardized key for the per-run session identifier.
	FieldSessionID = "session_id"
	// FieldVerdict is the standardized key for accept/reject decisions.
	FieldVerdict = "verdict"
)
