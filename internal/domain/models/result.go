package models

import "time"

// RunOptions are per-run overrides of the configured account settings.
type RunOptions struct {
	AccountBalance  *float64
	MaxRiskFraction *float64
}

type StageResults struct {
	News        *StageResult[NewsPayload]        `json:"news,omitempty"`
	Technical   *StageResult[TechnicalPayload]   `json:"technical,omitempty"`
	Fundamental *StageResult[FundamentalPayload] `json:"fundamental,omitempty"`
	Risk        *StageResult[RiskPayload]        `json:"risk,omitempty"`
}

// FinalResult is the shaped outcome of one run. Decision is always set.
type FinalResult struct {
	RunID      string               `json:"run_id"`
	Subject    string               `json:"subject"`
	Account    AccountSettings      `json:"account"`
	Decision   Decision             `json:"decision"`
	Results    StageResults         `json:"agent_results"`
	StepCount  int                  `json:"step_count"`
	Errors     map[StageName]string `json:"errors"`
	StartedAt  time.Time            `json:"started_at"`
	DurationMs int64                `json:"duration_ms"`
	Cached     bool                 `json:"cached,omitempty"`
}

type Edge struct {
	From      StageName `json:"from"`
	To        StageName `json:"to"`
	Condition string    `json:"condition,omitempty"`
}

type SystemInfo struct {
	AccountBalance  float64 `json:"account_balance"`
	MaxRiskPerTrade float64 `json:"max_risk_per_trade"`
	PipScale        float64 `json:"pip_scale"`
	APIConfigured   bool    `json:"api_configured"`
	Backend         string  `json:"backend"`
}

type WorkflowInfo struct {
	Nodes    []StageName `json:"nodes"`
	Edges    []Edge      `json:"edges"`
	NumNodes int         `json:"num_nodes"`
	NumEdges int         `json:"num_edges"`
}

type Info struct {
	System   SystemInfo   `json:"system"`
	Workflow WorkflowInfo `json:"workflow"`
}

// Where a run was requested from.
const (
	OriginAPI    = "api"
	OriginStream = "stream"
	OriginJob    = "job"
	OriginKafka  = "kafka"
)

// DecisionRecord is the flat audit row written for every completed run.
type DecisionRecord struct {
	RunID           string    `json:"run_id"`
	Origin          string    `json:"origin"`
	Subject         string    `json:"subject"`
	Action          Action    `json:"action"`
	Confidence      float64   `json:"confidence"`
	TradeApproved   bool      `json:"trade_approved"`
	RiskRejection   bool      `json:"risk_rejection"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	EntryPrice      float64   `json:"entry_price"`
	StopLoss        float64   `json:"stop_loss"`
	TakeProfit      float64   `json:"take_profit"`
	PositionSize    float64   `json:"position_size"`
	RiskInPips      float64   `json:"risk_in_pips"`
	RiskRewardRatio float64   `json:"risk_reward_ratio"`
	AccountBalance  float64   `json:"account_balance"`
	MaxRiskFraction float64   `json:"max_risk_fraction"`
	Summary         string    `json:"summary"`
	StepCount       int       `json:"step_count"`
	ErrorCount      int       `json:"error_count"`
	StartedAt       time.Time `json:"started_at"`
	DurationMs      int64     `json:"duration_ms"`
}

func NewDecisionRecord(res FinalResult, origin string) DecisionRecord {
	rec := DecisionRecord{
		RunID:           res.RunID,
		Origin:          origin,
		Subject:         res.Subject,
		Action:          res.Decision.Action,
		Confidence:      res.Decision.Confidence,
		RiskRejection:   res.Decision.Reasoning.RiskRejection,
		AccountBalance:  res.Account.AccountBalance,
		MaxRiskFraction: res.Account.MaxRiskFraction,
		Summary:         res.Decision.Reasoning.Summary,
		StepCount:       res.StepCount,
		ErrorCount:      len(res.Errors),
		StartedAt:       res.StartedAt,
		DurationMs:      res.DurationMs,
	}
	if r := res.Results.Risk; r.OK() {
		rec.TradeApproved = r.Data.TradeApproved
		rec.RejectionReason = r.Data.RejectionReason
		rec.RiskInPips = r.Data.RiskInPips
		if r.Data.RiskRewardRatio != nil {
			rec.RiskRewardRatio = *r.Data.RiskRewardRatio
		}
	}
	if tp := res.Decision.TradeParameters; tp != nil {
		rec.EntryPrice = tp.EntryPrice
		rec.StopLoss = tp.StopLoss
		rec.TakeProfit = tp.TakeProfit
		rec.PositionSize = tp.PositionSize
	}
	return rec
}
