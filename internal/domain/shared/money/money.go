package money

import (
	"errors"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency is used when listings and fixtures omit a currency code.
const DefaultCurrency = "LKR"

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrNegativeAmount   = errors.New("money: amount must not be negative")
	ErrInvalidPercent   = errors.New("money: percent must be between 0 and 100")
	ErrOverflow         = errors.New("money: amount out of range")
)

// Money keeps amounts in whole currency units (rupees for LKR).
type Money struct {
	Amount   int64
	Currency string
}

func New(amount int64, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	sum := m.Amount + other.Amount
	if (other.Amount > 0 && sum < m.Amount) || (other.Amount < 0 && sum > m.Amount) {
		return Money{}, ErrOverflow
	}
	return Money{Amount: sum, Currency: m.Currency}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	diff := m.Amount - other.Amount
	if (other.Amount > 0 && diff > m.Amount) || (other.Amount < 0 && diff < m.Amount) {
		return Money{}, ErrOverflow
	}
	return Money{Amount: diff, Currency: m.Currency}, nil
}

// Multiply returns m × times, or ErrOverflow when the product does not fit in int64.
func (m Money) Multiply(times int64) (Money, error) {
	if m.Amount == 0 || times == 0 {
		return Money{Amount: 0, Currency: m.Currency}, nil
	}
	if m.Amount == math.MinInt64 || times == math.MinInt64 {
		return Money{}, ErrOverflow
	}
	if abs(m.Amount) > math.MaxInt64/abs(times) {
		return Money{}, ErrOverflow
	}
	return Money{Amount: m.Amount * times, Currency: m.Currency}, nil
}

// Percent returns percent% of m rounded half away from zero to a whole unit.
// The amount is split into hundreds and a remainder so no intermediate exceeds |m|.
func (m Money) Percent(percent int) (Money, error) {
	if percent < 0 || percent > 100 {
		return Money{}, ErrInvalidPercent
	}
	if m.Amount == math.MinInt64 {
		return Money{}, ErrOverflow
	}
	a := abs(m.Amount)
	q, r := a/100, a%100
	amount := q*int64(percent) + (r*int64(percent)*2+100)/200
	if m.Amount < 0 {
		amount = -amount
	}
	return Money{Amount: amount, Currency: m.Currency}, nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

func (m Money) IsNegative() bool {
	return m.Amount < 0
}

// GreaterThan reports m > other; currencies must match.
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return false, err
	}
	return m.Amount > other.Amount, nil
}

var printer = message.NewPrinter(language.English)

// Format renders the amount with thousands separators, e.g. "7,500".
func (m Money) Format() string {
	return printer.Sprintf("%d", m.Amount)
}

func (m Money) String() string {
	return m.Currency + " " + m.Format()
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}
