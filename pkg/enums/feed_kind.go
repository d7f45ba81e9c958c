package enums

import "fmt"

// FeedKind identifies which upstream spreadsheet feed produced an upload row.
// Each kind carries its own matching and transition rules.
type FeedKind string

const (
	FeedKindOnOrder   FeedKind = "OnOrder"
	FeedKindBackOrder FeedKind = "BackOrder"
	FeedKindInvoiced  FeedKind = "Invoiced"
)

var validFeedKinds = []FeedKind{
	FeedKindOnOrder,
	FeedKindBackOrder,
	FeedKindInvoiced,
}

// IsValid checks whether the given kind matches the canonical enum.
func (f FeedKind) IsValid() bool {
	for _, candidate := range validFeedKinds {
		if candidate == f {
			return true
		}
	}
	return false
}

// CreatesRecords reports whether unmatched rows from this feed insert new
// ledger entries. Only the On Order feed does; Invoiced rows without a
// ledger counterpart are dropped.
func (f FeedKind) CreatesRecords() bool {
	return f == FeedKindOnOrder
}

// ParseFeedKind converts raw strings into FeedKind.
func ParseFeedKind(value string) (FeedKind, error) {
	for _, candidate := range validFeedKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid feed kind %q", value)
}
