package controllers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/dealerops/partstrail-backend/api/middleware"
	"github.com/dealerops/partstrail-backend/api/responses"
	"github.com/dealerops/partstrail-backend/api/validators"
	"github.com/dealerops/partstrail-backend/internal/ledger"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
	"github.com/dealerops/partstrail-backend/pkg/logger"
)

// ShipmentList returns one summary row per open or recently received
// shipment reference.
func ShipmentList(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := svc.ShipmentSummaries(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summaries)
	}
}

// ShipmentDetail lists the line items travelling under one reference.
func ShipmentDetail(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := shipmentRefParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ShipmentItems(r.Context(), ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPartResponses(svc, items))
	}
}

type shipmentETARequest struct {
	ETA string `json:"eta" validate:"required"`
}

// ShipmentUpdateETA stamps a new arrival estimate on every open line of the
// shipment.
func ShipmentUpdateETA(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, err := shipmentRefParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req shipmentETARequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.UsernameFromContext(r.Context())
		changed, err := svc.UpdateShipmentETA(r.Context(), ref, req.ETA, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"shipment_ref": ref, "updated": changed})
	}
}

// ShipmentRemoveItem takes one line out of its shipment. Untouched invoiced
// lines are dropped entirely; anything else reverts to its prior status.
func ShipmentRemoveItem(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.UsernameFromContext(r.Context())
		if err := svc.RemoveFromShipment(r.Context(), id, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "removed": true})
	}
}

func shipmentRefParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "shipmentRef")
	ref, err := url.PathUnescape(raw)
	if err != nil || ref == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "shipment reference required")
	}
	return ref, nil
}
