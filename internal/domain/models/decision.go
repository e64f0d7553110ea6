package models

// Action is the final trading decision.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionWait Action = "WAIT"
)

func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionWait:
		return true
	}
	return false
}

// Trades reports whether the action opens a position.
func (a Action) Trades() bool {
	return a == ActionBuy || a == ActionSell
}

// Direction is the side a trade is sized for.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

type TradeParameters struct {
	EntryPrice   float64 `json:"entry_price"`
	StopLoss     float64 `json:"stop_loss"`
	TakeProfit   float64 `json:"take_profit"`
	PositionSize float64 `json:"position_size"`
}

type Reasoning struct {
	Summary         string   `json:"summary"`
	WebVerification string   `json:"web_verification,omitempty"`
	KeyFactors      []string `json:"key_factors"`
	Risks           []string `json:"risks"`
	RiskRejection   bool     `json:"risk_rejection,omitempty"`
	Error           bool     `json:"error,omitempty"`
}

type Grounding struct {
	SearchQueries []string `json:"search_queries"`
	Sources       []Source `json:"sources"`
}

// Decision is the pipeline's output. TradeParameters is set only for BUY and SELL.
type Decision struct {
	Action          Action           `json:"action"`
	Confidence      float64          `json:"confidence"`
	Reasoning       Reasoning        `json:"reasoning"`
	TradeParameters *TradeParameters `json:"trade_parameters,omitempty"`
	Grounding       *Grounding       `json:"grounding,omitempty"`
}

func (d Decision) Clone() Decision {
	d.Reasoning.KeyFactors = append([]string(nil), d.Reasoning.KeyFactors...)
	d.Reasoning.Risks = append([]string(nil), d.Reasoning.Risks...)
	d.TradeParameters = clonePtr(d.TradeParameters)
	if d.Grounding != nil {
		g := Grounding{
			SearchQueries: append([]string(nil), d.Grounding.SearchQueries...),
			Sources:       append([]Source(nil), d.Grounding.Sources...),
		}
		d.Grounding = &g
	}
	return d
}

// WaitDecision builds a non-trading decision with the given summary.
func WaitDecision(summary string) Decision {
	return Decision{
		Action:     ActionWait,
		Confidence: 0,
		Reasoning: Reasoning{
			Summary:    summary,
			KeyFactors: []string{},
			Risks:      []string{},
		},
	}
}

// SynthesisInput is everything the decision service sees.
type SynthesisInput struct {
	Subject     string                           `json:"subject"`
	Account     AccountSettings                  `json:"account"`
	News        *StageResult[NewsPayload]        `json:"news,omitempty"`
	Technical   *StageResult[TechnicalPayload]   `json:"technical,omitempty"`
	Fundamental *StageResult[FundamentalPayload] `json:"fundamental,omitempty"`
	Risk        *StageResult[RiskPayload]        `json:"risk,omitempty"`
}

// SynthesisInputFrom copies the stage results out of s.
func SynthesisInputFrom(s State) SynthesisInput {
	c := s.Clone()
	return SynthesisInput{
		Subject:     c.Subject,
		Account:     c.Account,
		News:        c.News,
		Technical:   c.Technical,
		Fundamental: c.Fundamental,
		Risk:        c.Risk,
	}
}
