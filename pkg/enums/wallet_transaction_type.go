package enums

import "fmt"

// WalletTransactionType classifies entries in an account's wallet ledger.
type WalletTransactionType string

const (
	WalletTransactionTypeRefund      WalletTransactionType = "refund"
	WalletTransactionTypePurchase    WalletTransactionType = "purchase"
	WalletTransactionTypeAdminCredit WalletTransactionType = "admin_credit"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionTypeRefund,
	WalletTransactionTypePurchase,
	WalletTransactionTypeAdminCredit,
}

// String implements fmt.Stringer.
func (w WalletTransactionType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WalletTransactionType.
func (w WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// IsCredit reports whether the entry increases the wallet balance.
func (w WalletTransactionType) IsCredit() bool {
	return w == WalletTransactionTypeRefund || w == WalletTransactionTypeAdminCredit
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
