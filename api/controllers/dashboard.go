package controllers

import (
	"net/http"

	"github.com/dealerops/partstrail-backend/api/responses"
	"github.com/dealerops/partstrail-backend/internal/ledger"
	"github.com/dealerops/partstrail-backend/pkg/logger"
)

type dashboardResponse struct {
	Metrics  *ledger.DashboardMetrics `json:"metrics"`
	TopParts []ledger.TopPart         `json:"top_parts"`
}

// Dashboard serves the headline counts and most-ordered parts.
func Dashboard(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics, top, err := svc.Dashboard(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboardResponse{Metrics: metrics, TopParts: top})
	}
}
