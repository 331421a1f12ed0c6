// Package history defines completed-session records and the store contract
// they are persisted through, plus the read-side helpers the history and
// home views use: newest-first ordering, filtering by exercise type and the
// most recent activity per type.
package history

import (
	"context"
	"sort"
	"time"
)

// Record is one finished session. Records are append-only.
type Record struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
	Count       int       `json:"count"`
	DurationSec int       `json:"duration_sec"`
	Reason      string    `json:"reason,omitempty"`
}

// FormattedDate is the date as shown in the history list.
func (r Record) FormattedDate() string {
	return r.FormatDateIn(time.Local)
}

// FormatDateIn formats the date in loc.
func (r Record) FormatDateIn(loc *time.Location) string {
	return r.Date.In(loc).Format("Jan 2, 2006 15:04")
}

// Store persists records.
type Store interface {
	// Append adds a record to the collection.
	Append(ctx context.Context, rec Record) error
	// All returns every record in unspecified order.
	All(ctx context.Context) ([]Record, error)
}

// SortNewestFirst orders records by date descending, in place. Records
// with equal dates keep their relative order.
func SortNewestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.After(records[j].Date)
	})
}

// FilterType keeps records of type t; an empty t keeps everything.
func FilterType(records []Record, t string) []Record {
	if t == "" {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

// LastActivity returns the newest record of type t.
func LastActivity(records []Record, t string) (Record, bool) {
	var (
		best  Record
		found bool
	)
	for _, r := range FilterType(records, t) {
		if !found || r.Date.After(best.Date) {
			best, found = r, true
		}
	}
	return best, found
}

// Query is a read request against a store.
type Query struct {
	Type  string
	Limit int // zero means no limit
}

// List loads every record from s and applies q, newest first.
func List(ctx context.Context, s Store, q Query) ([]Record, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	out := FilterType(all, q.Type)
	SortNewestFirst(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Totals sums counts per exercise type.
func Totals(records []Record) map[string]int {
	out := make(map[string]int)
	for _, r := range records {
		out[r.Type] += r.Count
	}
	return out
}
