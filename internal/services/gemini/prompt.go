package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"FxDesk/internal/domain/models"
)

func newsPrompt(pair, base, quote string) string {
	return fmt.Sprintf(`You are a forex news analyst with real-time access to Google Search.

TASK: Analyze current news and market sentiment for %[1]s (%[2]s/%[3]s)

Use Google Search to find:
1. Recent news headlines (last 24-48 hours) about:
   - "%[1]s forex news"
   - "%[2]s currency news"
   - "%[3]s currency news"
   - "%[2]s central bank"
   - "%[2]s economy"

2. Major events affecting the currencies: central bank decisions, economic data
   releases, geopolitical events and shifts in market sentiment.

ANALYSIS REQUIREMENTS:
1. Headlines: the 3-5 most relevant ACTUAL recent headlines, with publication date if available.
2. Sentiment: score from -1.0 (very bearish) to +1.0 (very bullish) for %[2]s against %[3]s.
3. Impact: high (rate decisions, GDP, crises), medium (inflation data, forecasts) or low.
4. Key events: the 2-3 most important recent events with dates.

OUTPUT FORMAT (JSON):
{
  "headlines": [
    {"title": "headline", "date": "YYYY-MM-DD or recent", "sentiment": "bullish|bearish|neutral", "source": "publication"}
  ],
  "sentiment_score": 0.0,
  "sentiment": "bullish|bearish|neutral",
  "impact": "high|medium|low",
  "key_events": ["Event 1: description"],
  "summary": "1-2 sentences on market sentiment and why"
}

RULES:
- Use ONLY information from Google Search results.
- Do NOT make up headlines or events.
- If no recent news is found, say so in the summary.

Analyze now: %[1]s
`, pair, base, quote)
}

func synthesisPrompt(in models.SynthesisInput, minConfidence float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert forex trading synthesizer with real-time market access via Google Search.\n\n")
	fmt.Fprintf(&b, "CURRENCY PAIR: %s\n\nSTAGE ANALYSIS (verify against real-time web search):\n\n", in.Subject)

	section(&b, "NEWS", in.News)
	section(&b, "TECHNICAL", in.Technical)
	section(&b, "FUNDAMENTAL", in.Fundamental)
	section(&b, "RISK", in.Risk)

	var entry, stop, tp, size float64
	if in.Technical.OK() {
		entry, stop, tp = in.Technical.Data.CurrentPrice, in.Technical.Data.StopLoss, in.Technical.Data.TakeProfit
	}
	if in.Risk.OK() {
		size = in.Risk.Data.PositionSize
	}

	fmt.Fprintf(&b, `TASK:
1. Use Google Search to get real-time %[1]s market data, news and analysis.
2. Verify the stage analysis against current web sources.
3. Synthesize everything into a final trading decision with cited sources.

RULES:
- If the risk stage rejected the trade (trade_approved=false) you MUST output action "WAIT".
- Only recommend BUY or SELL if confidence is above %[2]g and risk is approved.
- Weigh news sentiment, technical signals and fundamentals.

OUTPUT FORMAT (JSON):
{
  "action": "BUY|SELL|WAIT",
  "confidence": 0.0,
  "reasoning": {
    "summary": "one paragraph",
    "web_verification": "what real-time data confirmed or contradicted",
    "key_factors": ["factor"],
    "risks": ["risk"]
  },
  "trade_parameters": {
    "entry_price": %[3]g,
    "stop_loss": %[4]g,
    "take_profit": %[5]g,
    "position_size": %[6]g
  }
}

When in doubt, output "WAIT".
`, in.Subject, minConfidence, entry, stop, tp, size)
	return b.String()
}

func section[T any](b *strings.Builder, title string, r *models.StageResult[T]) {
	fmt.Fprintf(b, "%s:\n", title)
	switch {
	case r == nil:
		b.WriteString("not available\n\n")
	case !r.OK():
		fmt.Fprintf(b, "failed: %s\n\n", r.Error)
	default:
		data, err := json.MarshalIndent(r.Data, "", "  ")
		if err != nil {
			fmt.Fprintf(b, "unavailable: %v\n\n", err)
			return
		}
		b.Write(data)
		b.WriteString("\n\n")
	}
}
