package indexer

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"learnchain/core/events"
	"learnchain/core/types"
	"learnchain/crypto"
	"learnchain/observability"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	subscribeBuffer  = 1024
)

// accountKeys are checked in order to pick the account an event concerns.
var accountKeys = []string{"student", "author", "recipient", "from", "by"}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Type     string `json:"type,omitempty"`
	Contract string `json:"contract,omitempty"`
	// Account accepts a bech32 or 0x address.
	Account  string  `json:"account,omitempty"`
	CourseID *uint64 `json:"courseId,omitempty"`
	AfterID  uint64  `json:"afterId,omitempty"`
	Limit    int     `json:"limit,omitempty"`
}

// Indexer persists committed ledger events for off-chain queries.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
	nowFn  func() time.Time
}

// New wraps an open, migrated store.
func New(db *gorm.DB, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{db: db, logger: logger, nowFn: time.Now}
}

// Run stores every event published on b until ctx is cancelled.
func (ix *Indexer) Run(ctx context.Context, b *events.Broadcaster) {
	if ix == nil || b == nil {
		return
	}
	updates, cancel := b.Subscribe(subscribeBuffer)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-updates:
			if !ok {
				return
			}
			if _, err := ix.Store(ctx, msg.Event); err != nil {
				observability.Events().RecordIndexFailure()
				ix.logger.Error("index event failed",
					slog.String("type", msg.Event.Type),
					slog.Uint64("sequence", msg.Sequence),
					slog.Any("error", err))
			}
		}
	}
}

// Store persists a single event and returns its record.
func (ix *Indexer) Store(ctx context.Context, evt *types.Event) (*EventRecord, error) {
	if evt == nil {
		return nil, errors.New("indexer: nil event")
	}
	record := recordFromEvent(evt)
	record.CreatedAt = ix.nowFn().UTC()
	if err := ix.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func recordFromEvent(evt *types.Event) *EventRecord {
	contract, _, _ := strings.Cut(evt.Type, ".")
	attrs := make(datatypes.JSONMap, len(evt.Attributes))
	for k, v := range evt.Attributes {
		attrs[k] = v
	}
	record := &EventRecord{Type: evt.Type, Contract: contract, Attributes: attrs}
	if raw, ok := evt.Attributes["courseId"]; ok {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			record.CourseID = &id
		}
	}
	for _, key := range accountKeys {
		if value := strings.TrimSpace(evt.Attributes[key]); value != "" {
			record.Account = strings.ToLower(value)
			break
		}
	}
	return record
}

// List returns events matching f in publication order.
func (ix *Indexer) List(ctx context.Context, f Filter) ([]EventRecord, error) {
	query := ix.db.WithContext(ctx).Model(&EventRecord{})
	if t := strings.TrimSpace(f.Type); t != "" {
		query = query.Where("type = ?", t)
	}
	if c := strings.TrimSpace(f.Contract); c != "" {
		query = query.Where("contract = ?", c)
	}
	if a := strings.TrimSpace(f.Account); a != "" {
		addr, err := crypto.ParseAddress(a)
		if err != nil {
			return nil, err
		}
		query = query.Where("account = ?", "0x"+hex.EncodeToString(addr[:]))
	}
	if f.CourseID != nil {
		query = query.Where("course_id = ?", *f.CourseID)
	}
	if f.AfterID > 0 {
		query = query.Where("id > ?", f.AfterID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	var out []EventRecord
	if err := query.Order("id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
