package routes

const (
	// Health
	Health = "/health"

	// Device key endpoints (student unless noted)
	KeysBase     = "/api/v1/keys"
	KeysStatus   = "/api/v1/keys/status"
	KeysRegister = "/api/v1/keys/register"

	// Admin key decisions
	KeysDecide = "/api/v1/keys/{keyID}/decide"
	KeysRevoke = "/api/v1/keys/{keyID}/revoke"

	// Challenge issuance (student)
	ChallengesIssue = "/api/v1/challenges"

	// Attendance sessions (professor except where noted)
	SessionsBase    = "/api/v1/sessions"
	SessionsByID    = "/api/v1/sessions/{sessionID}"
	SessionsClose   = "/api/v1/sessions/{sessionID}/close"
	SessionsRecords = "/api/v1/sessions/{sessionID}/records"
	SessionsMyMark  = "/api/v1/sessions/{sessionID}/records/me"

	// Marking (student)
	AttendanceMark = "/api/v1/attendance/mark"

	// Realtime SSE stream
	Events = "/api/v1/events"
)
