package enums

import "fmt"

// WalletTransactionType classifies a single ledger entry.
type WalletTransactionType string

const (
	WalletTransactionTypeCredit     WalletTransactionType = "credit"
	WalletTransactionTypeDebit      WalletTransactionType = "debit"
	WalletTransactionTypeWithdrawal WalletTransactionType = "withdrawal"
	WalletTransactionTypeRefund     WalletTransactionType = "refund"
	WalletTransactionTypeAdjustment WalletTransactionType = "adjustment"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionTypeCredit,
	WalletTransactionTypeDebit,
	WalletTransactionTypeWithdrawal,
	WalletTransactionTypeRefund,
	WalletTransactionTypeAdjustment,
}

// IsValid reports whether the value is a known WalletTransactionType.
func (t WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsCredit reports whether entries of this type increase the balance they touch.
func (t WalletTransactionType) IsCredit() bool {
	return t == WalletTransactionTypeCredit || t == WalletTransactionTypeRefund
}

// ParseWalletTransactionType converts raw input into a WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}
