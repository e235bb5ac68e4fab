package booking

import (
	"errors"

	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

// DefaultAdvancePercent is the share of the total a guest transfers before the host confirms.
const DefaultAdvancePercent = 25

var (
	ErrNegativeRate    = errors.New("booking: nightly rate must be non-negative")
	ErrPriceOutOfRange = errors.New("booking: total price exceeds the supported range")
)

type Quote struct {
	Nights      int
	NightlyRate money.Money
	Total       money.Money
	Advance     money.Money
}

type QuoteParams struct {
	Range          daterange.DateRange
	NightlyRate    money.Money
	AdvancePercent int
	// AdvanceOverride replaces the computed advance when set.
	AdvanceOverride *int64
}

func NewQuote(params QuoteParams) (Quote, error) {
	if err := params.Range.Validate(); err != nil {
		return Quote{}, ErrInvalidDateRange
	}
	if params.NightlyRate.IsNegative() {
		return Quote{}, ErrNegativeRate
	}
	if params.NightlyRate.Currency == "" {
		params.NightlyRate.Currency = money.DefaultCurrency
	}
	nights := params.Range.Nights()
	total, err := params.NightlyRate.Multiply(int64(nights))
	if errors.Is(err, money.ErrOverflow) {
		return Quote{}, ErrPriceOutOfRange
	}
	if err != nil {
		return Quote{}, err
	}

	var advance money.Money
	if params.AdvanceOverride != nil {
		if *params.AdvanceOverride < 0 || *params.AdvanceOverride > total.Amount {
			return Quote{}, ErrInvalidAdvance
		}
		advance = money.Money{Amount: *params.AdvanceOverride, Currency: total.Currency}
	} else {
		percent := params.AdvancePercent
		if percent == 0 {
			percent = DefaultAdvancePercent
		}
		if advance, err = total.Percent(percent); err != nil {
			return Quote{}, err
		}
	}
	return Quote{Nights: nights, NightlyRate: params.NightlyRate, Total: total, Advance: advance}, nil
}

// AdvanceFor applies the default advance share to total.
func AdvanceFor(total money.Money) money.Money {
	advance, _ := total.Percent(DefaultAdvancePercent)
	return advance
}
