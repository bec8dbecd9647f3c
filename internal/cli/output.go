package cli

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/me/expensectl/pkg/model"
)

// money renders an amount with thousands separators and two decimals.
func money(amount float64, currency string) string {
	s := humanize.FormatFloat("#,###.##", amount)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// day renders the date part of a timestamp.
func day(ts model.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format("2006-01-02")
}

// ago renders a timestamp as relative time, e.g. "3 days ago".
func ago(ts model.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return humanize.Time(ts.Time)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func optInt(p *int64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatInt(*p, 10)
}

func optString(p *string) string {
	if p == nil || *p == "" {
		return "-"
	}
	return *p
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
