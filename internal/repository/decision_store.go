package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FxDesk/internal/domain/models"
	domrepo "FxDesk/internal/domain/repository"
	pkgch "FxDesk/pkg/clickhouse"
	"FxDesk/pkg/logger"
)

const decisionsTable = "decisions"

var decisionColumns = []string{
	"run_id", "origin", "subject", "action", "confidence",
	"trade_approved", "risk_rejection", "rejection_reason",
	"entry_price", "stop_loss", "take_profit", "position_size",
	"risk_in_pips", "risk_reward_ratio", "account_balance", "max_risk_fraction",
	"summary", "step_count", "error_count", "started_at", "duration_ms",
}

// CHDecisionStore writes decision records to the ClickHouse decisions table.
type CHDecisionStore struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	log   *logger.Logger
}

func NewCHDecisionStore(ch *pkgch.Client, log *logger.Logger) *CHDecisionStore {
	return &CHDecisionStore{ch: ch, db: ch.DB(), table: decisionsTable, log: log}
}

// Init creates the decisions table if it does not exist.
func (s *CHDecisionStore) Init(ctx context.Context) error {
	return s.ch.Exec(ctx, createDecisionsTable(s.table))
}

func (s *CHDecisionStore) StoreDecision(ctx context.Context, rec models.DecisionRecord) error {
	return s.StoreDecisions(ctx, []models.DecisionRecord{rec})
}

// StoreDecisions inserts records as multi-row VALUES statements of at most
// insertChunk rows each.
func (s *CHDecisionStore) StoreDecisions(ctx context.Context, recs []models.DecisionRecord) error {
	const insertChunk = 500
	start := time.Now()
	for lo := 0; lo < len(recs); lo += insertChunk {
		hi := lo + insertChunk
		if hi > len(recs) {
			hi = len(recs)
		}
		q, args := buildDecisionInsert(s.table, recs[lo:hi])
		if q == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.log.Error("clickhouse insert decisions failed",
				logger.String("table", s.table),
				logger.Int("rows", hi-lo),
				logger.Error(err))
			return fmt.Errorf("insert decisions: %w", err)
		}
	}
	s.log.Debug("clickhouse insert decisions ok",
		logger.Int("rows", len(recs)),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *CHDecisionStore) Health(ctx context.Context) error { return s.ch.Health(ctx) }

// Close is a no-op; the client is owned by the caller.
func (s *CHDecisionStore) Close() error { return nil }

// buildDecisionInsert skips records without a run id.
func buildDecisionInsert(table string, recs []models.DecisionRecord) (string, []interface{}) {
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(decisionColumns)), ", ") + ")"
	values := make([]string, 0, len(recs))
	args := make([]interface{}, 0, len(recs)*len(decisionColumns))
	for _, r := range recs {
		if r.RunID == "" {
			continue
		}
		values = append(values, row)
		args = append(args,
			r.RunID, r.Origin, r.Subject, string(r.Action), r.Confidence,
			boolToUInt8(r.TradeApproved), boolToUInt8(r.RiskRejection), r.RejectionReason,
			r.EntryPrice, r.StopLoss, r.TakeProfit, r.PositionSize,
			r.RiskInPips, r.RiskRewardRatio, r.AccountBalance, r.MaxRiskFraction,
			r.Summary, uint32(r.StepCount), uint32(r.ErrorCount), r.StartedAt.UTC(), r.DurationMs,
		)
	}
	if len(values) == 0 {
		return "", nil
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table, strings.Join(decisionColumns, ", "), strings.Join(values, ", "))
	return q, args
}

func createDecisionsTable(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    run_id            String,
    origin            LowCardinality(String),
    subject           LowCardinality(String),
    action            LowCardinality(String),
    confidence        Float64,
    trade_approved    UInt8,
    risk_rejection    UInt8,
    rejection_reason  String,
    entry_price       Float64,
    stop_loss         Float64,
    take_profit       Float64,
    position_size     Float64,
    risk_in_pips      Float64,
    risk_reward_ratio Float64,
    account_balance   Float64,
    max_risk_fraction Float64,
    summary           String,
    step_count        UInt32,
    error_count       UInt32,
    started_at        DateTime64(3, 'UTC'),
    duration_ms       Int64
) ENGINE = MergeTree
PARTITION BY toYYYYMM(started_at)
ORDER BY (subject, started_at, run_id)`, table)
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

var _ domrepo.DecisionStore = (*CHDecisionStore)(nil)
