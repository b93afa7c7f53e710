package ledger_test

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/dairyline/milk-distributor/internal/date"
)

var (
	today    = date.New(2024, time.March, 10)
	fixedNow = time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string {
	return &s
}

type decimalMatcher struct {
	want decimal.Decimal
}

// decimalEq matches by numeric value, so 2.5 and 2.50 are equal.
func decimalEq(s string) gomock.Matcher {
	return decimalMatcher{want: dec(s)}
}

func (m decimalMatcher) Matches(x any) bool {
	got, ok := x.(decimal.Decimal)
	return ok && got.Equal(m.want)
}

func (m decimalMatcher) String() string {
	return fmt.Sprintf("is decimal %s", m.want)
}
