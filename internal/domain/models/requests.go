package models

import "time"

// AnalyzeRequest is the body (or query string) of the analysis endpoints.
type AnalyzeRequest struct {
	Query           string   `query:"query" json:"query" validate:"required,max=128"`
	AccountBalance  *float64 `query:"account_balance" json:"account_balance,omitempty" validate:"omitempty,gt=0"`
	MaxRiskPerTrade *float64 `query:"max_risk_per_trade" json:"max_risk_per_trade,omitempty" validate:"omitempty,gt=0,lte=1"`
}

func (r AnalyzeRequest) Options() RunOptions {
	return RunOptions{AccountBalance: r.AccountBalance, MaxRiskFraction: r.MaxRiskPerTrade}
}

// AnalysisRequestMessage is consumed from the requests topic.
type AnalysisRequestMessage struct {
	RequestID       string   `json:"request_id,omitempty"`
	Query           string   `json:"query"`
	AccountBalance  *float64 `json:"account_balance,omitempty"`
	MaxRiskPerTrade *float64 `json:"max_risk_per_trade,omitempty"`
}

type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// AnalysisJob is the payload carried by the job queue.
type AnalysisJob struct {
	JobID   string         `json:"job_id"`
	Request AnalyzeRequest `json:"request"`
}

// JobState is what GET /analyze/jobs/:id returns.
type JobState struct {
	JobID     string       `json:"job_id"`
	Status    JobStatus    `json:"status"`
	Result    *FinalResult `json:"result,omitempty"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type JobIDParam struct {
	ID string `param:"id" validate:"required,uuid"`
}
