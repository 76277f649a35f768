package types

type HealthResponse struct {
	Healthy    bool   `json:"healthy"`
	Message    string `json:"message"`
	Executable string `json:"executable,omitempty"`
	Version    string `json:"version,omitempty"`
}

type SendRequest struct {
	Message           string `json:"message"`
	AgentType         string `json:"agentType"`
	ExecutorProfileId string `json:"executorProfileId,optional"`
	// SessionId continues a kept-alive session instead of starting one.
	SessionId string `json:"sessionId,optional"`
}

type SendResponse struct {
	ExecutionProcessId string `json:"executionProcessId"`
	SessionId          string `json:"sessionId"`
	Message            string `json:"message"`
	Complete           bool   `json:"complete"`
}

type GetExecutionRequest struct {
	Id string `path:"id"`
}

type ListExecutionsRequest struct {
	SessionId string `form:"sessionId"`
	Limit     int    `form:"limit"`
}

type AgentInfo struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type ListAgentsResponse struct {
	Agents []AgentInfo `json:"agents"`
}

type SessionInfo struct {
	Id        string `json:"id"`
	Agent     string `json:"agent"`
	State     string `json:"state"`
	CreatedAt string `json:"createdAt"`
}

type ListSessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

type CloseSessionRequest struct {
	Id string `path:"id"`
}
