package enums

import "fmt"

// DeliveryStatus tracks an outbound delivery through pick, pack, and validation.
type DeliveryStatus string

const (
	DeliveryStatusDraft     DeliveryStatus = "draft"
	DeliveryStatusPicked    DeliveryStatus = "picked"
	DeliveryStatusPacked    DeliveryStatus = "packed"
	DeliveryStatusValidated DeliveryStatus = "validated"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusDraft,
	DeliveryStatusPicked,
	DeliveryStatusPacked,
	DeliveryStatusValidated,
}

// String implements fmt.Stringer.
func (s DeliveryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DeliveryStatus.
func (s DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
