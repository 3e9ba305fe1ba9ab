package transaction

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// Transaction is a ledger row mirrored from the provider's delta feed. Its
// identity is (UserID, AccountID, ExternalID, Date): the date participates
// because storage is partitioned by calendar month of the transaction date.
type Transaction struct {
	ID             int64             `json:"id"`
	UserID         string            `json:"userId"`
	AccountID      int64             `json:"accountId"`
	ExternalID     string            `json:"externalId"`
	Source         string            `json:"source"`
	Amount         float64           `json:"amount"`
	Date           time.Time         `json:"date"`
	AuthorizedDate *time.Time        `json:"authorizedDate"`
	Description    string            `json:"description"`
	Category       []string          `json:"category"`
	Type           string            `json:"type"`
	Pending        bool              `json:"pending"`
	IsManual       bool              `json:"isManual"`
	Metadata       map[string]string `json:"metadata"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// UpsertParams carries one added/modified transaction into storage. On
// conflict with the natural key, amount, dates, description, category,
// pending flag and metadata are refreshed.
type UpsertParams struct {
	UserID         string
	AccountID      int64
	ExternalID     string
	Source         string
	Amount         float64
	Date           time.Time
	AuthorizedDate *time.Time
	Description    string
	Category       []string
	Type           string
	Pending        bool
	Metadata       map[string]string
}

// Validate checks the identity fields of an upsert.
func (p UpsertParams) Validate() error {
	if p.UserID == "" {
		return errors.New("user ID is required")
	}
	if p.AccountID <= 0 {
		return errors.New("valid account ID is required")
	}
	if p.ExternalID == "" {
		return errors.New("external transaction ID is required")
	}
	if p.Date.IsZero() {
		return errors.New("transaction date is required")
	}
	return nil
}

// NormalizeCategory returns the provider's category hierarchy as a fixed
// order list with blank entries dropped. The result is never nil, so
// downstream consumers need no null checks.
func NormalizeCategory(raw []string) []string {
	normalized := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c != "" {
			normalized = append(normalized, c)
		}
	}
	return normalized
}

// Month identifies one calendar-month storage bucket.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the bucket containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Start returns the first instant of the month (UTC).
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following month's bucket.
func (m Month) Next() Month {
	return MonthOf(m.Start().AddDate(0, 1, 0))
}

// String renders the bucket as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// MonthsOf collects the distinct months covering the given dates, sorted
// ascending. Used to decide which partitions must exist before a write.
func MonthsOf(dates []time.Time) []Month {
	seen := make(map[Month]struct{}, len(dates))
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		seen[MonthOf(d)] = struct{}{}
	}

	months := make([]Month, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool {
		return months[i].Start().Before(months[j].Start())
	})
	return months
}
