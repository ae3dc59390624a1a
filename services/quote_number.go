package services

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// ErrQuoteNumbersExhausted is returned when a business has used every sequence
// number available for a month.
var ErrQuoteNumbersExhausted = errors.New("quote numbers exhausted for this month")

const maxQuoteSequence = 9999

// QuoteNumberer produces the human-readable number printed on a quote.
type QuoteNumberer interface {
	Next(ctx context.Context, businessID string, now time.Time) (string, error)
}

// quoteNumberPrefix returns "Q<yy><mm>-" for the month of now.
func quoteNumberPrefix(now time.Time) string {
	return "Q" + now.Format("0601") + "-"
}

// FormatQuoteNumber builds Q<yy><mm>-NNNN.
func FormatQuoteNumber(now time.Time, suffix int) string {
	return fmt.Sprintf("%s%04d", quoteNumberPrefix(now), suffix)
}

// RandomQuoteNumberer draws a random four-digit suffix. It is kept for
// compatibility with quotes numbered before sequences existed and does not
// prevent collisions.
type RandomQuoteNumberer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomQuoteNumberer returns a numberer seeded with seed, so output is reproducible.
func NewRandomQuoteNumberer(seed int64) *RandomQuoteNumberer {
	return &RandomQuoteNumberer{rng: rand.New(rand.NewSource(seed))}
}

func (n *RandomQuoteNumberer) Next(_ context.Context, _ string, now time.Time) (string, error) {
	n.mu.Lock()
	suffix := n.rng.Intn(maxQuoteSequence + 1)
	n.mu.Unlock()
	return FormatQuoteNumber(now, suffix), nil
}

// quoteSequencesCollection holds the last number issued per business and month.
const quoteSequencesCollection = "quote_sequences"

// SequenceQuoteNumberer numbers quotes per business and month. Each call
// reserves its number in a stored counter, so two quotes numbered before
// either is saved still get different numbers. A reserved number whose quote
// is never saved leaves a gap.
type SequenceQuoteNumberer struct {
	App *pocketbase.PocketBase
}

func (n SequenceQuoteNumberer) Next(ctx context.Context, businessID string, now time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	prefix := quoteNumberPrefix(now)

	var next int
	err := n.App.RunInTransaction(func(txApp core.App) error {
		seq, err := txApp.FindFirstRecordByFilter(
			quoteSequencesCollection,
			"business = {:businessId} && prefix = {:prefix}",
			map[string]any{"businessId": businessID, "prefix": prefix},
		)
		switch {
		case err == nil:
		case errors.Is(err, sql.ErrNoRows):
			col, err := txApp.FindCollectionByNameOrId(quoteSequencesCollection)
			if err != nil {
				return fmt.Errorf("%s collection not found: %w", quoteSequencesCollection, err)
			}
			// First number this month: continue after any quotes already stored.
			highest, err := highestStoredSequence(txApp, businessID, prefix)
			if err != nil {
				return err
			}
			seq = core.NewRecord(col)
			seq.Set("business", businessID)
			seq.Set("prefix", prefix)
			seq.Set("last", highest)
		default:
			return fmt.Errorf("loading quote sequence: %w", err)
		}

		next = seq.GetInt("last") + 1
		if next > maxQuoteSequence {
			return fmt.Errorf("%w: %s", ErrQuoteNumbersExhausted, prefix)
		}
		seq.Set("last", next)
		if err := txApp.Save(seq); err != nil {
			return fmt.Errorf("saving quote sequence: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return FormatQuoteNumber(now, next), nil
}

// highestStoredSequence returns the largest suffix among a business's stored
// quotes with the given prefix.
func highestStoredSequence(app core.App, businessID, prefix string) (int, error) {
	existing, err := app.FindRecordsByFilter(
		"quotes",
		"business = {:businessId} && invoice_number ~ {:prefix}",
		"",
		0,
		0,
		map[string]any{
			"businessId": businessID,
			"prefix":     prefix + "%",
		},
	)
	if err != nil {
		return 0, fmt.Errorf("counting stored quote numbers: %w", err)
	}

	highest := 0
	for _, rec := range existing {
		var seq int
		if _, err := fmt.Sscanf(strings.TrimPrefix(rec.GetString("invoice_number"), prefix), "%d", &seq); err == nil && seq > highest {
			highest = seq
		}
	}
	return max(highest, len(existing)), nil
}

// UUIDQuoteNumberer derives the suffix from a random UUID. It needs no storage
// but, like the random numberer, can collide.
type UUIDQuoteNumberer struct {
	NewUUID func() uuid.UUID
}

func (n UUIDQuoteNumberer) Next(_ context.Context, _ string, now time.Time) (string, error) {
	gen := n.NewUUID
	if gen == nil {
		gen = uuid.New
	}
	id := gen()
	suffix := int(binary.BigEndian.Uint32(id[:4]) % (maxQuoteSequence + 1))
	return FormatQuoteNumber(now, suffix), nil
}

// NewQuoteNumberer picks a numbering strategy by name: "sequence" (default),
// "random" or "uuid".
func NewQuoteNumberer(strategy string, app *pocketbase.PocketBase) QuoteNumberer {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "random":
		return NewRandomQuoteNumberer(time.Now().UnixNano())
	case "uuid":
		return UUIDQuoteNumberer{}
	default:
		return SequenceQuoteNumberer{App: app}
	}
}
