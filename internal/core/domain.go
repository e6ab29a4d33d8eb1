package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// LicenseKeyPro is the activation value that unlocks the PRO tier.
// Any other value, including empty, leaves the account in the free tier.
const LicenseKeyPro = "BOXPRO"

// FallbackCategory receives transactions whose category is not in the
// user's category list.
const FallbackCategory = "Outros"

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID          string          `json:"id"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Date        Date            `json:"date"`
	}

	// RecurringItem is kept as a data shape for snapshot and backup
	// compatibility. Nothing schedules or materializes these.
	RecurringItem struct {
		ID            string          `json:"id"`
		Description   string          `json:"description"`
		Amount        Money           `json:"amount"`
		Day           int             `json:"day"`
		Type          TransactionType `json:"type"`
		Category      string          `json:"category"`
		LastProcessed *Date           `json:"lastProcessed,omitempty"`
	}

	User struct {
		Name         string `json:"name"`
		Email        string `json:"email"`
		Phone        string `json:"phone,omitempty"`
		PasswordHash string `json:"-"`
	}
)

var (
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidDay       = errors.New("invalid day of month")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyEmail       = errors.New("empty email")
)

// DefaultCategories returns the category set every fresh state starts with.
// Order is preserved; users extend the list at runtime.
func DefaultCategories() []string {
	return []string{
		"Alimentação",
		"Transporte",
		"Moradia",
		"Lazer",
		"Saúde",
		"Educação",
		"Salário",
		"Investimentos",
		"Outros",
	}
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// NewDate creates a Date at midnight UTC for year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Before reports whether d falls on an earlier calendar day than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (tx Transaction) Validate() error {
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if len(strings.TrimSpace(tx.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(tx.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(tx.Category) == "" {
		return ErrEmptyCategory
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	return tx.Date.Validate()
}

func (ri RecurringItem) Validate() error {
	if !ri.Type.Valid() {
		return ErrInvalidType
	}
	if ri.Day < 1 || ri.Day > 31 {
		return ErrInvalidDay
	}
	if len(strings.TrimSpace(ri.Description)) == 0 {
		return ErrEmptyDescription
	}
	if strings.TrimSpace(ri.Category) == "" {
		return ErrEmptyCategory
	}
	return ri.Amount.Validate()
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	return nil
}
