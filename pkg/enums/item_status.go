package enums

import "fmt"

// ItemStatus tracks a part reservation through its lifecycle.
type ItemStatus string

const (
	ItemStatusOnOrder           ItemStatus = "On Order"
	ItemStatusBackOrder         ItemStatus = "Back Order"
	ItemStatusInTransit         ItemStatus = "In Transit"
	ItemStatusReordered         ItemStatus = "Reordered"
	ItemStatusPartiallyReceived ItemStatus = "Partially Received"
	ItemStatusReceived          ItemStatus = "Received"
	ItemStatusPosted            ItemStatus = "Posted"
)

var validItemStatuses = []ItemStatus{
	ItemStatusOnOrder,
	ItemStatusBackOrder,
	ItemStatusInTransit,
	ItemStatusReordered,
	ItemStatusPartiallyReceived,
	ItemStatusReceived,
	ItemStatusPosted,
}

// IsValid checks whether the given status matches the canonical enum.
func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsReceived reports whether any quantity has physically arrived.
func (s ItemStatus) IsReceived() bool {
	return s == ItemStatusReceived || s == ItemStatusPartiallyReceived
}

// InShipment reports whether the record currently belongs to an active shipment.
func (s ItemStatus) InShipment() bool {
	return s == ItemStatusInTransit || s == ItemStatusReordered
}

// ParseItemStatus converts raw strings into ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
