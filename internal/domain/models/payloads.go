package models

import "time"

// Data sources reported by the news stage.
const (
	DataSourceMock         = "mock"
	DataSourceGoogleSearch = "google_search"
	DataSourceRemote       = "remote"
)

type Headline struct {
	Title     string `json:"title"`
	Date      string `json:"date"`
	Sentiment string `json:"sentiment"`
	Source    string `json:"source"`
}

type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type NewsPayload struct {
	Pair           string     `json:"pair"`
	Headlines      []Headline `json:"headlines"`
	SentimentScore float64    `json:"sentiment_score"`
	Sentiment      string     `json:"sentiment"`
	Impact         string     `json:"impact"`
	NewsCount      int        `json:"news_count"`
	KeyEvents      []string   `json:"key_events"`
	Summary        string     `json:"summary"`
	SearchQueries  []string   `json:"search_queries,omitempty"`
	Sources        []Source   `json:"sources,omitempty"`
	DataSource     string     `json:"data_source"`
	Timestamp      time.Time  `json:"timestamp"`
}

func (p NewsPayload) Clone() NewsPayload {
	p.Headlines = append([]Headline(nil), p.Headlines...)
	p.KeyEvents = append([]string(nil), p.KeyEvents...)
	p.SearchQueries = append([]string(nil), p.SearchQueries...)
	p.Sources = append([]Source(nil), p.Sources...)
	return p
}

type Indicators struct {
	RSI                float64 `json:"rsi"`
	MACD               float64 `json:"macd"`
	MACDSignal         float64 `json:"macd_signal"`
	MovingAvg50        float64 `json:"moving_avg_50"`
	MovingAvg200       float64 `json:"moving_avg_200"`
	BollingerUpper     float64 `json:"bollinger_upper"`
	BollingerLower     float64 `json:"bollinger_lower"`
	RealizedVolatility float64 `json:"realized_volatility"`
}

// Signal strengths, ordered weakest first.
const (
	SignalNeutral  = "neutral"
	SignalWeak     = "weak"
	SignalModerate = "moderate"
	SignalStrong   = "strong"
)

// Overall technical signals.
const (
	OverallBuy  = "BUY"
	OverallSell = "SELL"
	OverallHold = "HOLD"
)

type TechnicalSignals struct {
	Buy     string `json:"buy"`
	Sell    string `json:"sell"`
	Overall string `json:"overall"`
}

type TechnicalPayload struct {
	Pair         string           `json:"pair"`
	CurrentPrice float64          `json:"current_price"`
	Indicators   Indicators       `json:"indicators"`
	Trend        string           `json:"trend"`
	Support      float64          `json:"support"`
	Resistance   float64          `json:"resistance"`
	Signals      TechnicalSignals `json:"signals"`
	StopLoss     float64          `json:"stop_loss"`
	TakeProfit   float64          `json:"take_profit"`
	Summary      string           `json:"summary"`
	Timestamp    time.Time        `json:"timestamp"`
}

func (p TechnicalPayload) Clone() TechnicalPayload { return p }

type EconomicIndicators struct {
	GDPGrowth    float64 `json:"gdp_growth"`
	Inflation    float64 `json:"inflation"`
	InterestRate float64 `json:"interest_rate"`
	Unemployment float64 `json:"unemployment"`
	TradeBalance float64 `json:"trade_balance"`
	DebtToGDP    float64 `json:"debt_to_gdp"`
}

type CurrencyFundamentals struct {
	Currency   string             `json:"currency"`
	Indicators EconomicIndicators `json:"indicators"`
}

// Comparison outcomes per metric.
const (
	BaseStronger  = "base_stronger"
	QuoteStronger = "quote_stronger"
	Neutral       = "neutral"
)

type FundamentalPayload struct {
	Pair             string               `json:"pair"`
	BaseCurrency     CurrencyFundamentals `json:"base_currency"`
	QuoteCurrency    CurrencyFundamentals `json:"quote_currency"`
	Comparison       map[string]string    `json:"comparison"`
	FundamentalScore float64              `json:"fundamental_score"`
	Outlook          string               `json:"outlook"`
	Summary          string               `json:"summary"`
	Timestamp        time.Time            `json:"timestamp"`
}

func (p FundamentalPayload) Clone() FundamentalPayload {
	if p.Comparison != nil {
		cmp := make(map[string]string, len(p.Comparison))
		for k, v := range p.Comparison {
			cmp[k] = v
		}
		p.Comparison = cmp
	}
	return p
}

type RiskPayload struct {
	Pair            string    `json:"pair"`
	Direction       Direction `json:"direction"`
	EntryPrice      float64   `json:"entry_price"`
	StopLoss        float64   `json:"stop_loss"`
	TakeProfit      *float64  `json:"take_profit,omitempty"`
	PipScale        float64   `json:"pip_scale"`
	RiskInPips      float64   `json:"risk_in_pips"`
	PositionSize    float64   `json:"position_size"`
	DollarRisk      float64   `json:"dollar_risk"`
	RiskPercentage  float64   `json:"risk_percentage"`
	AccountBalance  float64   `json:"account_balance"`
	RewardInPips    *float64  `json:"reward_in_pips,omitempty"`
	RiskRewardRatio *float64  `json:"risk_reward_ratio,omitempty"`
	PotentialProfit *float64  `json:"potential_profit,omitempty"`
	TradeApproved   bool      `json:"trade_approved"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	Summary         string    `json:"summary"`
	Timestamp       time.Time `json:"timestamp"`
}

func (p RiskPayload) Clone() RiskPayload {
	p.TakeProfit = clonePtr(p.TakeProfit)
	p.RewardInPips = clonePtr(p.RewardInPips)
	p.RiskRewardRatio = clonePtr(p.RiskRewardRatio)
	p.PotentialProfit = clonePtr(p.PotentialProfit)
	return p
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
