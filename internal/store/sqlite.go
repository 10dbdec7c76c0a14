package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mt5-terminal/internal/models"
)

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal creates a new SQLite-based journal.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	journal := &SQLiteJournal{db: db}

	if err := journal.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return journal, nil
}

// initSchema creates all required tables and indexes.
func (j *SQLiteJournal) initSchema() error {
	schema := `
	-- Signals received from the backend
	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		class INTEGER NOT NULL,
		confidence REAL NOT NULL,
		rsi REAL,
		macd REAL,
		adx REAL,
		atr REAL,
		received_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Trades executed through the terminal
	CREATE TABLE IF NOT EXISTS trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		volume_lots REAL NOT NULL,
		entry REAL NOT NULL,
		stop_loss REAL,
		take_profit REAL,
		confidence REAL,
		executed_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Backtest runs
	CREATE TABLE IF NOT EXISTS backtests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		bars INTEGER NOT NULL,
		win_rate REAL NOT NULL,
		total_trades INTEGER NOT NULL,
		return_pct REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Model training runs
	CREATE TABLE IF NOT EXISTS trainings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		train_score REAL NOT NULL,
		test_score REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_signals_symbol_time ON signals(symbol, received_at);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol_time ON trades(symbol, executed_at);
	`

	_, err := j.db.Exec(schema)
	return err
}

// SaveSignal journals a received signal.
func (j *SQLiteJournal) SaveSignal(ctx context.Context, signal *models.Signal) error {
	receivedAt := signal.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO signals (symbol, timeframe, class, confidence, rsi, macd, adx, atr, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		signal.Symbol, signal.Timeframe, int(signal.Class), signal.Confidence,
		signal.Indicators.RSI, signal.Indicators.MACD, signal.Indicators.ADX, signal.Indicators.ATR,
		receivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save signal: %w", err)
	}
	return nil
}

// GetSignals returns journaled signals matching the filter, newest first.
func (j *SQLiteJournal) GetSignals(ctx context.Context, filter SignalFilter) ([]SignalRecord, error) {
	query := `SELECT id, symbol, timeframe, class, confidence, rsi, macd, adx, atr, received_at FROM signals`
	conditions, args := filterConditions(filter.Symbol, filter.From, filter.To, "received_at")
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY received_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var result []SignalRecord
	for rows.Next() {
		var r SignalRecord
		var class int
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Timeframe, &class, &r.Confidence,
			&r.RSI, &r.MACD, &r.ADX, &r.ATR, &r.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		r.Class = models.SignalClass(class)
		result = append(result, r)
	}

	return result, rows.Err()
}

// SaveTrade journals an executed trade.
func (j *SQLiteJournal) SaveTrade(ctx context.Context, trade *TradeRecord) error {
	executedAt := trade.ExecutedAt
	if executedAt.IsZero() {
		executedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO trades (symbol, side, volume_lots, entry, stop_loss, take_profit, confidence, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.Symbol, trade.Side, trade.VolumeLots, trade.Entry,
		trade.StopLoss, trade.TakeProfit, trade.Confidence, executedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save trade: %w", err)
	}
	return nil
}

// GetTrades returns journaled trades matching the filter, newest first.
func (j *SQLiteJournal) GetTrades(ctx context.Context, filter TradeFilter) ([]TradeRecord, error) {
	query := `SELECT id, symbol, side, volume_lots, entry, stop_loss, take_profit, confidence, executed_at FROM trades`
	conditions, args := filterConditions(filter.Symbol, filter.From, filter.To, "executed_at")
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY executed_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var result []TradeRecord
	for rows.Next() {
		var r TradeRecord
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Side, &r.VolumeLots, &r.Entry,
			&r.StopLoss, &r.TakeProfit, &r.Confidence, &r.ExecutedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		result = append(result, r)
	}

	return result, rows.Err()
}

// SaveBacktest journals a backtest run.
func (j *SQLiteJournal) SaveBacktest(ctx context.Context, result *models.BacktestResult) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO backtests (symbol, timeframe, bars, win_rate, total_trades, return_pct)
		VALUES (?, ?, ?, ?, ?, ?)`,
		result.Symbol, result.Timeframe, result.Bars,
		result.WinRate, result.TotalTrades, result.ReturnPct,
	)
	if err != nil {
		return fmt.Errorf("failed to save backtest: %w", err)
	}
	return nil
}

// SaveTraining journals a model training run.
func (j *SQLiteJournal) SaveTraining(ctx context.Context, result *models.TrainResult) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO trainings (symbol, train_score, test_score)
		VALUES (?, ?, ?)`,
		result.Symbol, result.TrainScore, result.TestScore,
	)
	if err != nil {
		return fmt.Errorf("failed to save training run: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func filterConditions(symbol string, from, to time.Time, timeColumn string) ([]string, []interface{}) {
	var conditions []string
	var args []interface{}

	if symbol != "" {
		conditions = append(conditions, "symbol = ?")
		args = append(args, symbol)
	}
	if !from.IsZero() {
		conditions = append(conditions, timeColumn+" >= ?")
		args = append(args, from)
	}
	if !to.IsZero() {
		conditions = append(conditions, timeColumn+" <= ?")
		args = append(args, to)
	}

	return conditions, args
}

// Ensure SQLiteJournal implements Journal interface
var _ Journal = (*SQLiteJournal)(nil)
