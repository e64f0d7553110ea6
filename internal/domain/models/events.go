package models

import "time"

// Progress event types emitted on the stream and websocket endpoints.
const (
	EventStart       = "start"
	EventQueryParsed = "query_parsed"
	EventAgentUpdate = "agent_update"
	EventRiskUpdate  = "risk_update"
	EventDecision    = "decision"
	EventComplete    = "complete"
	EventError       = "error"
)

type StreamEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type StartEvent struct {
	Query     string    `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

type QueryParsedEvent struct {
	Query string `json:"query"`
	Pair  string `json:"pair"`
}

type AgentUpdateEvent struct {
	Agent   StageName   `json:"agent"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Step    int         `json:"step"`
}

type ErrorEvent struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}
