package enums

import "fmt"

// AdjustmentStatus tracks a physical-count adjustment document.
type AdjustmentStatus string

const (
	AdjustmentStatusDraft     AdjustmentStatus = "draft"
	AdjustmentStatusValidated AdjustmentStatus = "validated"
)

var validAdjustmentStatuses = []AdjustmentStatus{
	AdjustmentStatusDraft,
	AdjustmentStatusValidated,
}

// String implements fmt.Stringer.
func (s AdjustmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AdjustmentStatus.
func (s AdjustmentStatus) IsValid() bool {
	for _, candidate := range validAdjustmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAdjustmentStatus converts raw input into an AdjustmentStatus.
func ParseAdjustmentStatus(value string) (AdjustmentStatus, error) {
	for _, candidate := range validAdjustmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid adjustment status %q", value)
}
