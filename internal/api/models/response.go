package models

// BaseResponse represents the base API response structure
type BaseResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// ErrorInfo represents error information
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// StatusResponse is the aggregate queue/connectivity state shown in the UI
type StatusResponse struct {
	Online         bool   `json:"online"`
	PendingCount   int    `json:"pending_count"`
	LastSweepAt    int64  `json:"last_sweep_at,omitempty"`
	LastSweepFully bool   `json:"last_sweep_fully_synced"`
	CheckedAt      int64  `json:"checked_at,omitempty"`
	Banner         string `json:"banner,omitempty"`
}

// LoginResponse carries the agent session returned by the central office
type LoginResponse struct {
	AgentID           string `json:"agent_id"`
	AgentName         string `json:"agent_name"`
	ConstituencyID    string `json:"constituency_id"`
	ConstituencyLabel string `json:"constituency_label"`
}
