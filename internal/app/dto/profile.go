package dto

import (
	"time"

	domainprofiles "staybook/internal/domain/profiles"
)

type BankDetailsView struct {
	UserID              string    `json:"user_id"`
	BankName            string    `json:"bank_name"`
	MaskedAccountNumber string    `json:"masked_account_number"`
	AccountHolder       string    `json:"account_holder"`
	Branch              string    `json:"branch"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func MapBankDetails(p *domainprofiles.HostProfile) BankDetailsView {
	return BankDetailsView{
		UserID:              p.UserID,
		BankName:            p.Bank.BankName,
		MaskedAccountNumber: domainprofiles.MaskAccountNumber(p.Bank.AccountNumber),
		AccountHolder:       p.Bank.AccountHolder,
		Branch:              p.Bank.Branch,
		UpdatedAt:           p.UpdatedAt,
	}
}
