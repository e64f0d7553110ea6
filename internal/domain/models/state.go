package models

// AccountSettings are the run inputs the risk stage sizes against.
type AccountSettings struct {
	AccountBalance  float64 `json:"account_balance"`
	MaxRiskFraction float64 `json:"max_risk_per_trade"`
	PipScale        float64 `json:"pip_scale"`
}

// State is threaded through the stage graph. One per run; never shared across runs.
type State struct {
	Subject     string                           `json:"subject"`
	Account     AccountSettings                  `json:"account"`
	News        *StageResult[NewsPayload]        `json:"news,omitempty"`
	Technical   *StageResult[TechnicalPayload]   `json:"technical,omitempty"`
	Fundamental *StageResult[FundamentalPayload] `json:"fundamental,omitempty"`
	Risk        *StageResult[RiskPayload]        `json:"risk,omitempty"`
	Decision    *Decision                        `json:"decision,omitempty"`
	StepCount   int                              `json:"step_count"`
	Errors      map[StageName]string             `json:"errors"`
}

// NewState returns the initial state for a run.
func NewState(subject string, account AccountSettings) State {
	return State{
		Subject: subject,
		Account: account,
		Errors:  map[StageName]string{},
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{
		Subject:     s.Subject,
		Account:     s.Account,
		News:        cloneResult(s.News, NewsPayload.Clone),
		Technical:   cloneResult(s.Technical, TechnicalPayload.Clone),
		Fundamental: cloneResult(s.Fundamental, FundamentalPayload.Clone),
		Risk:        cloneResult(s.Risk, RiskPayload.Clone),
		StepCount:   s.StepCount,
		Errors:      make(map[StageName]string, len(s.Errors)),
	}
	if s.Decision != nil {
		d := s.Decision.Clone()
		out.Decision = &d
	}
	for k, v := range s.Errors {
		out.Errors[k] = v
	}
	return out
}

// Update is a partial state. Nil fields are absent and leave the state untouched.
type Update struct {
	News        *StageResult[NewsPayload]
	Technical   *StageResult[TechnicalPayload]
	Fundamental *StageResult[FundamentalPayload]
	Risk        *StageResult[RiskPayload]
	Decision    *Decision
	StepCount   int
	Errors      map[StageName]string
}

// FailureUpdate is the delta a stage returns when it cannot produce its result.
// Stages without a result slot (synthesis) only record the error.
func FailureUpdate(stage StageName, msg string, step int) Update {
	u := Update{
		StepCount: step,
		Errors:    map[StageName]string{stage: msg},
	}
	switch stage {
	case StageNews:
		u.News = Failed[NewsPayload](msg)
	case StageTechnical:
		u.Technical = Failed[TechnicalPayload](msg)
	case StageFundamental:
		u.Fundamental = Failed[FundamentalPayload](msg)
	case StageRisk:
		u.Risk = Failed[RiskPayload](msg)
	}
	return u
}

// ResultError returns the error message recorded in the named stage's result, if any.
func (s State) ResultError(stage StageName) string {
	switch stage {
	case StageNews:
		if s.News != nil {
			return s.News.Error
		}
	case StageTechnical:
		if s.Technical != nil {
			return s.Technical.Error
		}
	case StageFundamental:
		if s.Fundamental != nil {
			return s.Fundamental.Error
		}
	case StageRisk:
		if s.Risk != nil {
			return s.Risk.Error
		}
	}
	return s.Errors[stage]
}
