package core

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

type (
	Date struct {
		time.Time
	}

	Subscription struct {
		ID          int64 // Database ID, zero for CSV/memory backends until assigned
		Name        string
		Vendor      string
		Category    string
		Cycle       BillingCycle
		Amount      Money
		Currency    string
		NextPayment Date
		AutoRenew   bool
	}
)

var (
	ErrEmptyName       = errors.New("empty name")
	ErrNameTooLong     = errors.New("name too long (max 100 characters)")
	ErrEmptyCategory   = errors.New("empty category")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidCycle    = errors.New("invalid billing cycle")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrAmountTooLarge  = errors.New("amount too large (max 1000000)")
	ErrInvalidDate     = errors.New("invalid date")
	ErrNotFound        = errors.New("subscription not found")
)

// DateLayout is the wire and storage format for dates.
const DateLayout = "2006-01-02"

// NewDate creates a midnight-normalized Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current date, midnight-normalized.
func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the date in YYYY-MM-DD form, empty for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Normalize strips the time-of-day component.
func (d Date) Normalize() Date {
	return NewDate(d.Time.Year(), int(d.Time.Month()), d.Time.Day())
}

// DaysUntil returns the whole number of days from d until other.
// Negative when other is in the past relative to d.
func (d Date) DaysUntil(other Date) int {
	from := d.Normalize()
	to := other.Normalize()
	return int(to.Sub(from.Time).Hours() / 24)
}

// IsEmpty returns true if the date is zero (for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// DaysLeft returns whole days from today until the next payment.
func (s Subscription) DaysLeft(today Date) int {
	return today.DaysUntil(s.NextPayment)
}

// IsActive reports whether the next payment has not yet passed.
func (s Subscription) IsActive(today Date) bool {
	return s.DaysLeft(today) >= 0
}

// RenewalWarning reports whether the subscription will auto-charge within
// the given number of days.
func (s Subscription) RenewalWarning(today Date, withinDays int) bool {
	if !s.AutoRenew {
		return false
	}
	left := s.DaysLeft(today)
	return left >= 0 && left <= withinDays
}

// Validate checks all fields and returns the joined set of problems.
func (s Subscription) Validate(catalog *Catalog) error {
	var errs []error

	name := strings.TrimSpace(s.Name)
	if name == "" {
		errs = append(errs, ErrEmptyName)
	} else if len([]rune(name)) > 100 {
		errs = append(errs, ErrNameTooLong)
	}

	if strings.TrimSpace(s.Category) == "" {
		errs = append(errs, ErrEmptyCategory)
	} else if catalog != nil && !catalog.HasCategory(s.Category) {
		errs = append(errs, ErrUnknownCategory)
	}

	if !s.Cycle.Valid() {
		errs = append(errs, ErrInvalidCycle)
	}

	if err := s.Amount.Validate(); err != nil {
		errs = append(errs, err)
	}

	if err := s.NextPayment.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Sanitize trims whitespace, strips control characters and caps length.
// Applied to every free-text field before validation.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\t' {
			return -1
		}
		return r
	}, s)
	runes := []rune(s)
	if len(runes) > 255 {
		return string(runes[:255])
	}
	return s
}
