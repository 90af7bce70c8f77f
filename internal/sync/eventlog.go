package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"sync"
	"time"
)

// Event types appended by the exam services.
const (
	TypeSubmissionCompleted = "SubmissionCompleted"
	TypeAnswerReviewed      = "AnswerReviewed"
)

type Event struct {
	Seq       int64  `json:"seq"`
	SiteID    string `json:"siteId"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	DataJSON  string `json:"data"`
	CreatedAt int64  `json:"createdAt"` // unix millis
}

// Source reads the log back in sequence order.
type Source interface {
	Since(ctx context.Context, after int64, limit int) ([]Event, error)
}

// NewEvent builds an event keyed by an entity id with payload encoded as JSON.
func NewEvent(typ string, id int64, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: typ, Key: strconv.FormatInt(id, 10), DataJSON: string(b)}, nil
}

// Sink receives terminal transitions for export tooling.
type Sink interface {
	Append(ctx context.Context, e Event) error
}

type EventRepo struct {
	db     *sql.DB
	siteID string
	now    func() time.Time
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID, now: time.Now}
}

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, event_key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		r.siteID, e.Type, e.Key, e.DataJSON, r.now().UnixMilli())
	return err
}

// Since returns up to limit events with Seq greater than after, oldest first.
func (r *EventRepo) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, event_key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MemoryLog is the in-process Sink used with the memory store.
type MemoryLog struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryLog() *MemoryLog { return &MemoryLog{} }

func (m *MemoryLog) Append(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.Seq = int64(len(m.events) + 1)
	if e.SiteID == "" {
		e.SiteID = "local"
	}
	e.CreatedAt = time.Now().UnixMilli()
	m.events = append(m.events, e)
	return nil
}

func (m *MemoryLog) Since(_ context.Context, after int64, limit int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	out := []Event{}
	for _, e := range m.events {
		if e.Seq > after && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}
