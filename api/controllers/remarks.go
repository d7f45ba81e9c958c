package controllers

import (
	"net/http"

	"github.com/dealerops/partstrail-backend/api/middleware"
	"github.com/dealerops/partstrail-backend/api/responses"
	"github.com/dealerops/partstrail-backend/api/validators"
	"github.com/dealerops/partstrail-backend/internal/remarks"
	"github.com/dealerops/partstrail-backend/pkg/logger"
)

// RemarkAdd files a remark against a ledger row and mirrors it into the
// row's audit trail.
func RemarkAdd(svc remarks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input remarks.AddInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input.EnteredBy = middleware.UsernameFromContext(r.Context())
		input.AuthorRoles = middleware.RolesFromContext(r.Context())

		remark, err := svc.Add(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, remark)
	}
}

func RemarksForPart(svc remarks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partID, err := validators.ParseIDParam(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListForPart(r.Context(), partID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// RemarkReminders lists the caller's follow-ups that land today.
func RemarkReminders(svc remarks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.TodayReminders(r.Context(), middleware.UsernameFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// RemarkMarkRead consumes a reminder so it stops resurfacing.
func RemarkMarkRead(svc remarks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "remarkId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "read": true})
	}
}
