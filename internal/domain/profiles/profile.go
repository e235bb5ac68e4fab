package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"staybook/internal/domain/shared/events"
	"staybook/internal/domain/shared/money"
)

var (
	ErrProfileNotFound    = errors.New("profiles: profile not found")
	ErrUserRequired       = errors.New("profiles: user id is required")
	ErrBankDetailsInvalid = errors.New("profiles: bank name, account number, account holder and branch are required")
	ErrBankDetailsMissing = errors.New("profiles: host has not provided bank details")
)

type BankDetails struct {
	BankName      string
	AccountNumber string
	AccountHolder string
	Branch        string
}

// Valid requires every field to be present.
func (b BankDetails) Valid() bool {
	return strings.TrimSpace(b.BankName) != "" &&
		strings.TrimSpace(b.AccountNumber) != "" &&
		strings.TrimSpace(b.AccountHolder) != "" &&
		strings.TrimSpace(b.Branch) != ""
}

func (b BankDetails) normalized() BankDetails {
	return BankDetails{
		BankName:      strings.TrimSpace(b.BankName),
		AccountNumber: strings.TrimSpace(b.AccountNumber),
		AccountHolder: strings.TrimSpace(b.AccountHolder),
		Branch:        strings.TrimSpace(b.Branch),
	}
}

// MaskAccountNumber keeps the first and last four characters of account numbers
// of eight or more characters and hides at most four characters in between.
func MaskAccountNumber(accountNumber string) string {
	if len(accountNumber) < 8 {
		return accountNumber
	}
	hidden := min(len(accountNumber)-8, 4)
	return accountNumber[:4] + strings.Repeat("*", hidden) + accountNumber[len(accountNumber)-4:]
}

// PaymentInstructions renders the transfer note shown to a guest for the advance payment.
func PaymentInstructions(advance money.Money, bank BankDetails) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Please transfer %s to the following bank account:\n\n", advance)
	fmt.Fprintf(&sb, "Bank: %s\n", bank.BankName)
	fmt.Fprintf(&sb, "Account Number: %s\n", bank.AccountNumber)
	fmt.Fprintf(&sb, "Account Holder: %s\n", bank.AccountHolder)
	fmt.Fprintf(&sb, "Branch: %s\n\n", bank.Branch)
	sb.WriteString("After completing the transfer, upload the payment receipt in your booking details to confirm your reservation.")
	return sb.String()
}

type HostProfile struct {
	UserID    string
	Bank      BankDetails
	CreatedAt time.Time
	UpdatedAt time.Time
	events.EventRecorder
}

type Repository interface {
	ByUser(ctx context.Context, userID string) (*HostProfile, error)
	Save(ctx context.Context, profile *HostProfile) error
}

func NewHostProfile(userID string, now time.Time) (*HostProfile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}
	return &HostProfile{UserID: userID, CreatedAt: now.UTC(), UpdatedAt: now.UTC()}, nil
}

func (p *HostProfile) UpdateBankDetails(details BankDetails, now time.Time) error {
	if !details.Valid() {
		return ErrBankDetailsInvalid
	}
	p.Bank = details.normalized()
	p.UpdatedAt = now.UTC()
	p.Record(BankDetailsUpdatedEvent{UserID: p.UserID, At: p.UpdatedAt})
	return nil
}

// PayoutAccount returns the bank details guests should transfer to.
func (p *HostProfile) PayoutAccount() (BankDetails, error) {
	if p == nil || !p.Bank.Valid() {
		return BankDetails{}, ErrBankDetailsMissing
	}
	return p.Bank, nil
}

type BankDetailsUpdatedEvent struct {
	UserID string
	At     time.Time
}

func (e BankDetailsUpdatedEvent) EventName() string     { return "profile.bank_details_updated" }
func (e BankDetailsUpdatedEvent) AggregateID() string   { return e.UserID }
func (e BankDetailsUpdatedEvent) OccurredAt() time.Time { return e.At }
