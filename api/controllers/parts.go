package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dealerops/partstrail-backend/api/middleware"
	"github.com/dealerops/partstrail-backend/api/responses"
	"github.com/dealerops/partstrail-backend/api/validators"
	"github.com/dealerops/partstrail-backend/internal/directory"
	"github.com/dealerops/partstrail-backend/internal/ledger"
	"github.com/dealerops/partstrail-backend/internal/mailer"
	"github.com/dealerops/partstrail-backend/internal/notifications"
	"github.com/dealerops/partstrail-backend/pkg/db/models"
	"github.com/dealerops/partstrail-backend/pkg/enums"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
	"github.com/dealerops/partstrail-backend/pkg/logger"
	"github.com/dealerops/partstrail-backend/pkg/pagination"
)

// partResponse is the over-the-wire projection of one ledger row. Duration
// is computed per request so aging is always current.
type partResponse struct {
	ID              uint             `json:"id"`
	ItemNo          string           `json:"item_no"`
	ItemDescription string           `json:"item_description"`
	CustomerNo      string           `json:"customer_no"`
	CustomerName    string           `json:"customer_name"`
	VIN             string           `json:"vin,omitempty"`
	DocumentNo      string           `json:"document_no"`
	OrderNo         string           `json:"order_no"`
	ServiceAdvisor  string           `json:"service_advisor"`
	ItemStatus      enums.ItemStatus `json:"item_status"`
	ETA             string           `json:"eta"`
	OrderedQty      int              `json:"ordered_qty"`
	InTransitQty    int              `json:"in_transit_qty"`
	ReceivedQty     int              `json:"received_qty"`
	Cardown         string           `json:"cardown"`
	ShipmentRef     string           `json:"shipment_ref,omitempty"`
	NextInfo        string           `json:"next_info,omitempty"`
	Duration        string           `json:"duration"`
	UpdatesLog      string           `json:"updates_log"`
	IsArchived      bool             `json:"is_archived"`
	PostedBy        string           `json:"posted_by,omitempty"`
	PostedAt        *time.Time       `json:"posted_at,omitempty"`
	ReceivedDate    *time.Time       `json:"received_date,omitempty"`
	LastUpdated     time.Time        `json:"last_updated"`
}

func toPartResponse(svc ledger.Service, rec models.PartRecord, now time.Time) partResponse {
	return partResponse{
		ID:              rec.ID,
		ItemNo:          rec.ItemNo,
		ItemDescription: rec.ItemDescription,
		CustomerNo:      rec.CustomerNo,
		CustomerName:    rec.CustomerName,
		VIN:             rec.VIN,
		DocumentNo:      rec.DocumentNo,
		OrderNo:         rec.OrderNo,
		ServiceAdvisor:  rec.ServiceAdvisor,
		ItemStatus:      rec.ItemStatus,
		ETA:             rec.ETA,
		OrderedQty:      rec.OrderedQty,
		InTransitQty:    rec.InTransitQty,
		ReceivedQty:     rec.ReceivedQty,
		Cardown:         rec.Cardown,
		ShipmentRef:     rec.ShipmentRef,
		NextInfo:        rec.NextInfo,
		Duration:        svc.Aging(&rec, now),
		UpdatesLog:      rec.UpdatesLog,
		IsArchived:      rec.IsArchived,
		PostedBy:        rec.PostedBy,
		PostedAt:        rec.PostedAt,
		ReceivedDate:    rec.ReceivedDate,
		LastUpdated:     rec.LastUpdated,
	}
}

func toPartResponses(svc ledger.Service, recs []models.PartRecord) []partResponse {
	now := time.Now()
	out := make([]partResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toPartResponse(svc, rec, now))
	}
	return out
}

// PartsList returns the caller's active ledger view.
func PartsList(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListActive(r.Context(), middleware.ScopeFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPartResponses(svc, rows))
	}
}

// PartsArchived pages through posted history, newest first.
func PartsArchived(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, next, err := svc.ListArchived(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteList(w, toPartResponses(svc, rows), next)
	}
}

// PartsSearch matches the query against item, order, and customer columns.
func PartsSearch(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		rows, err := svc.Search(r.Context(), query, middleware.ScopeFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPartResponses(svc, rows))
	}
}

func PartDetail(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rec, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPartResponse(svc, *rec, time.Now()))
	}
}

type receiveRequest struct {
	Items []ledger.ReceiveInput `json:"items" validate:"required,min=1,dive"`
}

// PartsReceive books arrived quantities for one or more shipment lines.
// Each booked row raises an in-app nudge for its advisor, and a fully
// received row also emails the advisor right away.
func PartsReceive(
	svc ledger.Service,
	notifier notifications.Service,
	users directory.Service,
	mail mailer.Mailer,
	logg *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req receiveRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.UsernameFromContext(r.Context())
		payloads, err := svc.Receive(r.Context(), actor, req.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		notifyArrivals(r, notifier, users, mail, logg, payloads)
		responses.WriteSuccess(w, map[string]int{"received": len(payloads)})
	}
}

// notifyArrivals fans receipt payloads out to the advisors. Delivery is
// best effort; a failed notification or email never fails the receipt.
func notifyArrivals(
	r *http.Request,
	notifier notifications.Service,
	users directory.Service,
	mail mailer.Mailer,
	logg *logger.Logger,
	payloads []ledger.NotificationPayload,
) {
	for _, p := range payloads {
		if p.Advisor == "" {
			continue
		}
		if notifier != nil {
			msg := fmt.Sprintf("%s for %s is %s", p.ItemNo, p.CustomerName, p.Status)
			if err := notifier.NotifyAdvisor(r.Context(), p.Advisor, msg); err != nil {
				logg.Error(r.Context(), "arrival notification failed", err)
			}
		}
		if mail == nil || users == nil || p.Status != enums.ItemStatusReceived {
			continue
		}
		to, err := users.AdvisorEmail(r.Context(), p.Advisor)
		if err != nil || to == "" {
			logg.Warn(r.Context(), "arrival email skipped: advisor has no address")
			continue
		}
		if err := mail.SendArrival(r.Context(), to, p); err != nil {
			logg.Error(r.Context(), "arrival email failed", err)
		}
	}
}

func PartArchive(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.UsernameFromContext(r.Context())
		if err := svc.Archive(r.Context(), id, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "archived": true})
	}
}

func PartRestore(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.UsernameFromContext(r.Context())
		if err := svc.Restore(r.Context(), id, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "archived": false})
	}
}

type bulkPostRequest struct {
	DocumentNo string `json:"document_no" validate:"required"`
}

// PartsBulkPost archives every active row carrying the given document
// number in one pass.
func PartsBulkPost(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkPostRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.UsernameFromContext(r.Context())
		count, err := svc.ArchiveByDocument(r.Context(), req.DocumentNo, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"document_no": req.DocumentNo, "posted": count})
	}
}

// PartSetDates adjusts the manual override dates. A null field is left
// untouched; an empty string clears the override.
func PartSetDates(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input ledger.DatesInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.UsernameFromContext(r.Context())
		if err := svc.SetDates(r.Context(), id, input, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id})
	}
}

type logEntryRequest struct {
	Action string `json:"action" validate:"required"`
}

// PartAddLog appends a manual entry to the row's audit trail.
func PartAddLog(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "partId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req logEntryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.UsernameFromContext(r.Context())
		if actor == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "user identity required"))
			return
		}
		if err := svc.AddLogEntry(r.Context(), id, actor, req.Action); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id})
	}
}
