package types

// ProjectsResponse wraps the list returned by GET /projects.
type ProjectsResponse struct {
	Projects []ProjectInfo `json:"projects"`
}

// ImportResponse is returned by POST /projects/import.
type ImportResponse struct {
	// Identifier of this import, for log correlation.
	// example: 9b2f4c1e-8d3a-4c55-a0f1-0b5f3c2d7e11
	ID string `json:"id" example:"9b2f4c1e-8d3a-4c55-a0f1-0b5f3c2d7e11"`
	// Imported project name.
	// example: clicky
	Project string `json:"project" example:"clicky"`
	// Remaining lifetime in seconds; zero means unlimited.
	// example: 3600
	TTLSeconds float64 `json:"ttl_seconds" example:"3600"`
	// Number of entries in the bundle.
	// example: 9
	Entries int `json:"entries" example:"9"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: project not found: clicky
	Error string `json:"error" example:"project not found: clicky"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Overall state: loading, ready or closed.
	// example: ready
	State string `json:"state" example:"ready"`
	// Inference engine name.
	// example: onnxruntime
	Engine string `json:"engine" example:"onnxruntime"`
	// Execution provider selected at startup.
	// example: cpu
	Provider string `json:"provider" example:"cpu"`
	// Registered projects.
	// example: 4
	Projects int `json:"projects" example:"4"`
	// Live sessions in the runtime pool.
	// example: 6
	Sessions int `json:"sessions" example:"6"`
	// Logical model bindings across all projects.
	// example: 9
	Bindings int `json:"bindings" example:"9"`
	// Sessions constructed since start.
	// example: 6
	Builds int64 `json:"builds_total" example:"6"`
	// Models that could not be resolved at startup, as project/model.
	Skipped []string `json:"skipped,omitempty"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Last error observed by the manager (if any).
	LastError string `json:"last_error,omitempty"`
}
