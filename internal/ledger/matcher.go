package ledger

import (
	"context"

	"github.com/dealerops/partstrail-backend/internal/normalize"
	"github.com/dealerops/partstrail-backend/pkg/db/models"
	"github.com/dealerops/partstrail-backend/pkg/enums"
)

// FindCandidates returns every active ledger row the incoming upload row
// should mutate. The item number gates the candidate set; the feed kind
// decides which rows in that set actually match. Multiple matches are
// normal: one part can be on order for several customers at once.
func (s *service) FindCandidates(ctx context.Context, row UploadRow, feed enums.FeedKind) ([]models.PartRecord, error) {
	return s.matchWithin(ctx, s.repo, row, feed)
}

// isMatch applies the feed specific identity rules to one candidate whose
// item number already matched.
func isMatch(row UploadRow, cand models.PartRecord, feed enums.FeedKind) bool {
	switch feed {
	case enums.FeedKindInvoiced:
		return matchInvoiced(row, cand)
	case enums.FeedKindBackOrder:
		return matchBackOrder(row, cand)
	default:
		return false
	}
}

func matchInvoiced(row UploadRow, cand models.PartRecord) bool {
	inName := normalize.FoldName(row.CustomerName)
	candName := normalize.FoldName(cand.CustomerName)
	if inName != "" && candName != "" && inName == candName {
		return true
	}

	inKey := normalize.Order(row.OrderNo)
	candKey := normalize.Order(cand.OrderNo)
	return inKey != "" && candKey != "" && inKey == candKey
}

// matchBackOrder tries the order key first. Historical references pad the
// trailing digit run inconsistently, so when a strict comparison fails the
// last digit run of each key decides instead. The customer name is only
// consulted when one side has no usable key at all.
func matchBackOrder(row UploadRow, cand models.PartRecord) bool {
	inKey := normalize.Order(row.OrderNo)
	candKey := normalize.Order(cand.OrderNo)

	if inKey != "" && candKey != "" {
		if inKey == candKey {
			return true
		}
		inRun := normalize.LastDigitRun(inKey)
		candRun := normalize.LastDigitRun(candKey)
		return inRun != "" && inRun == candRun
	}

	inName := normalize.FoldName(row.CustomerName)
	candName := normalize.FoldName(cand.CustomerName)
	return inName != "" && inName == candName
}
