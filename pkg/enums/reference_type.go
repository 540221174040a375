package enums

import "fmt"

// ReferenceType names the record a ledger entry points back to.
type ReferenceType string

const (
	ReferenceTypeOrder      ReferenceType = "order"
	ReferenceTypeWithdrawal ReferenceType = "withdrawal"
	ReferenceTypeRefund     ReferenceType = "refund"
	ReferenceTypeManual     ReferenceType = "manual"
)

var validReferenceTypes = []ReferenceType{
	ReferenceTypeOrder,
	ReferenceTypeWithdrawal,
	ReferenceTypeRefund,
	ReferenceTypeManual,
}

// IsValid reports whether the value is a known ReferenceType.
func (r ReferenceType) IsValid() bool {
	for _, candidate := range validReferenceTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReferenceType converts raw input into a ReferenceType.
func ParseReferenceType(value string) (ReferenceType, error) {
	for _, candidate := range validReferenceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reference type %q", value)
}
