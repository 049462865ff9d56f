package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/atelier-works/concierge/internal/domain"
	"github.com/atelier-works/concierge/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // Serializes writes to prevent SQLITE_BUSY under load
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		tool_call_id TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id);

	CREATE TABLE IF NOT EXISTS message_metrics (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		latency_ms REAL NOT NULL,
		tools_used TEXT NOT NULL,
		num_iterations INTEGER NOT NULL,
		guardrail_blocked INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_metrics_conversation ON message_metrics(conversation_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetConversation retrieves the ordered message history for a conversation.
func (s *SQLiteStore) GetConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	query := `
		SELECT role, content, tool_call_id, created_at
		FROM messages WHERE conversation_id = ? ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close conversation rows", "error", closeErr)
		}
	}()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var toolCallID sql.NullString
		var createdAt int64

		if err := rows.Scan(&msg.Role, &msg.Content, &toolCallID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}

		msg.ToolCallID = toolCallID.String
		msg.CreatedAt = time.Unix(createdAt, 0)
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation rows: %w", err)
	}

	return messages, nil
}

// AppendMessage appends a message to a conversation's history.
// Retries with exponential backoff when SQLite reports a lock conflict.
func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID string, msg domain.Message) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = s.appendMessageOnce(ctx, conversationID, msg)
		if err == nil {
			return nil
		}

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms
			slog.Debug("AppendMessage hit SQLITE_BUSY, retrying",
				"conversation_id", conversationID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}
		break
	}

	return fmt.Errorf("append message to %s: %w", conversationID, err)
}

func (s *SQLiteStore) appendMessageOnce(ctx context.Context, conversationID string, msg domain.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var toolCallID interface{}
	if msg.ToolCallID != "" {
		toolCallID = msg.ToolCallID
	}

	query := `
		INSERT INTO messages (conversation_id, role, content, tool_call_id, created_at)
		VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		conversationID, string(msg.Role), msg.Content, toolCallID, createdAt.Unix(),
	)
	return err
}

// RecordMetrics appends one message-processing metrics entry.
func (s *SQLiteStore) RecordMetrics(ctx context.Context, m domain.MessageMetrics) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	toolsUsed := m.ToolsUsed
	if toolsUsed == nil {
		toolsUsed = []string{}
	}
	toolsJSON, err := json.Marshal(toolsUsed)
	if err != nil {
		return fmt.Errorf("marshal tools_used: %w", err)
	}

	query := `
		INSERT INTO message_metrics (
			id, conversation_id, timestamp, latency_ms,
			tools_used, num_iterations, guardrail_blocked
		) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		m.ID, m.ConversationID, m.Timestamp.Unix(), m.LatencyMs,
		string(toolsJSON), m.NumIterations, m.GuardrailBlocked,
	)
	if err != nil {
		return fmt.Errorf("record metrics: %w", err)
	}
	return nil
}

// ConversationMetrics aggregates metrics for a single conversation.
func (s *SQLiteStore) ConversationMetrics(ctx context.Context, conversationID string) (*domain.ConversationMetrics, error) {
	rows, err := s.queryMetrics(ctx, `
		SELECT latency_ms, tools_used, guardrail_blocked
		FROM message_metrics WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return nil, err
	}

	agg := aggregate(rows)
	return &domain.ConversationMetrics{
		ConversationID:  conversationID,
		TotalMessages:   agg.totalMessages,
		AvgLatencyMs:    agg.avgLatencyMs,
		TotalToolCalls:  agg.totalToolCalls,
		ToolsUsage:      agg.toolsUsage,
		GuardrailBlocks: agg.guardrailBlocks,
	}, nil
}

// GlobalMetrics aggregates metrics across all conversations.
func (s *SQLiteStore) GlobalMetrics(ctx context.Context) (*domain.GlobalMetrics, error) {
	rows, err := s.queryMetrics(ctx, `
		SELECT latency_ms, tools_used, guardrail_blocked FROM message_metrics`)
	if err != nil {
		return nil, err
	}

	var conversations int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT conversation_id) FROM message_metrics`)
	if err := row.Scan(&conversations); err != nil {
		return nil, fmt.Errorf("count conversations: %w", err)
	}

	agg := aggregate(rows)
	return &domain.GlobalMetrics{
		TotalConversations: conversations,
		TotalMessages:      agg.totalMessages,
		AvgLatencyMs:       agg.avgLatencyMs,
		TotalToolCalls:     agg.totalToolCalls,
		ToolsUsage:         agg.toolsUsage,
		GuardrailBlocks:    agg.guardrailBlocks,
	}, nil
}

type metricsRow struct {
	latencyMs        float64
	toolsUsed        []string
	guardrailBlocked bool
}

func (s *SQLiteStore) queryMetrics(ctx context.Context, query string, args ...interface{}) ([]metricsRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close metrics rows", "error", closeErr)
		}
	}()

	var out []metricsRow
	for rows.Next() {
		var r metricsRow
		var toolsJSON string
		if err := rows.Scan(&r.latencyMs, &toolsJSON, &r.guardrailBlocked); err != nil {
			return nil, fmt.Errorf("scan metrics row: %w", err)
		}
		if err := json.Unmarshal([]byte(toolsJSON), &r.toolsUsed); err != nil {
			return nil, fmt.Errorf("unmarshal tools_used: %w", err)
		}
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics rows: %w", err)
	}
	return out, nil
}

type metricsAggregate struct {
	totalMessages   int
	avgLatencyMs    float64
	totalToolCalls  int
	toolsUsage      map[string]int
	guardrailBlocks int
}

func aggregate(rows []metricsRow) metricsAggregate {
	agg := metricsAggregate{toolsUsage: map[string]int{}}
	var latencySum float64
	for _, r := range rows {
		agg.totalMessages++
		latencySum += r.latencyMs
		for _, tool := range r.toolsUsed {
			agg.totalToolCalls++
			agg.toolsUsage[tool]++
		}
		if r.guardrailBlocked {
			agg.guardrailBlocks++
		}
	}
	if agg.totalMessages > 0 {
		agg.avgLatencyMs = latencySum / float64(agg.totalMessages)
	}
	return agg
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
