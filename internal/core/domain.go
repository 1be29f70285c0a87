package core

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire and storage layout of calendar dates.
const DateLayout = "2006-01-02"

const (
	CategoryIncome  CategoryKind = "INCOME"
	CategoryExpense CategoryKind = "EXPENSE"

	GroupEssential CategoryGroup = "ESSENTIAL"
	GroupLifestyle CategoryGroup = "LIFESTYLE"
	GroupFuture    CategoryGroup = "FUTURE"
	GroupOther     CategoryGroup = "OTHER"

	TxIncome   TxKind = "INCOME"
	TxExpense  TxKind = "EXPENSE"
	TxTransfer TxKind = "TRANSFER"

	// DefaultAccountType is used when an account is created without a type.
	DefaultAccountType = "BANK"
)

type (
	CategoryKind  string
	CategoryGroup string
	TxKind        string

	// Date is a calendar day without time of day, kept in UTC.
	Date struct {
		time.Time
	}

	Account struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Type   string `json:"type"`
		Active bool   `json:"active"`
	}

	Category struct {
		ID     int64         `json:"id"`
		Name   string        `json:"name"`
		Kind   CategoryKind  `json:"kind"`
		Group  CategoryGroup `json:"group"`
		Active bool          `json:"active"`
	}

	// Transaction is one ledger row. Amount is signed: income is positive,
	// expense negative, transfer legs carry opposite signs.
	Transaction struct {
		ID             int64   `json:"id"`
		Date           Date    `json:"date"`
		Description    string  `json:"description"`
		Amount         Money   `json:"amount"`
		Kind           TxKind  `json:"kind"`
		AccountID      int64   `json:"account_id"`
		CategoryID     *int64  `json:"category_id"`
		TransferPairID *string `json:"transfer_pair_id"`
	}

	Budget struct {
		ID            int64  `json:"id"`
		Month         string `json:"month"`
		CategoryID    int64  `json:"category_id"`
		AmountPlanned Money  `json:"amount_planned"`
	}

	// TransferResult identifies both legs of a created transfer.
	TransferResult struct {
		PairID string `json:"pair_id"`
		OutID  int64  `json:"out_id"`
		InID   int64  `json:"in_id"`
	}
)

var ErrInvalidDate = errors.New("invalid date")

// Valid reports whether k is a known category kind.
func (k CategoryKind) Valid() bool {
	return k == CategoryIncome || k == CategoryExpense
}

// Valid reports whether g is a known category group.
func (g CategoryGroup) Valid() bool {
	switch g {
	case GroupEssential, GroupLifestyle, GroupFuture, GroupOther:
		return true
	}
	return false
}

// Valid reports whether k is a known transaction kind.
func (k TxKind) Valid() bool {
	switch k {
	case TxIncome, TxExpense, TxTransfer:
		return true
	}
	return false
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Today returns the current date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM month the date belongs to.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(data))
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner for DATE and TEXT columns.
func (d *Date) Scan(value any) error {
	switch v := value.(type) {
	case time.Time:
		*d = NewDate(v.Year(), int(v.Month()), v.Day())
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidDate, value)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// IsTransferLeg reports whether the transaction belongs to a transfer pair.
func (t Transaction) IsTransferLeg() bool {
	return t.Kind == TxTransfer && t.TransferPairID != nil && *t.TransferPairID != ""
}
