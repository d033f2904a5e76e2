package enums

import "fmt"

// RefundReason enumerates the reasons a buyer may cite when requesting a refund.
type RefundReason string

const (
	RefundReasonSizeIssue   RefundReason = "size_issue"
	RefundReasonDamagedItem RefundReason = "damaged_item"
	RefundReasonWrongItem   RefundReason = "wrong_item"
)

var validRefundReasons = []RefundReason{
	RefundReasonSizeIssue,
	RefundReasonDamagedItem,
	RefundReasonWrongItem,
}

// String implements fmt.Stringer.
func (r RefundReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RefundReason.
func (r RefundReason) IsValid() bool {
	for _, candidate := range validRefundReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRefundReason converts raw input into a RefundReason.
func ParseRefundReason(value string) (RefundReason, error) {
	for _, candidate := range validRefundReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund reason %q", value)
}
