package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dealerops/partstrail-backend/api/middleware"
	"github.com/dealerops/partstrail-backend/api/responses"
	"github.com/dealerops/partstrail-backend/internal/directory"
	"github.com/dealerops/partstrail-backend/internal/feeds"
	"github.com/dealerops/partstrail-backend/internal/ledger"
	"github.com/dealerops/partstrail-backend/internal/mailer"
	"github.com/dealerops/partstrail-backend/internal/notifications"
	"github.com/dealerops/partstrail-backend/pkg/enums"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
	"github.com/dealerops/partstrail-backend/pkg/logger"
	"github.com/dealerops/partstrail-backend/pkg/metrics"
)

// uploadMaxMemory bounds the multipart buffer; overflow spills to disk.
const uploadMaxMemory = 16 << 20

type uploadResponse struct {
	Feed      string `json:"feed"`
	Processed int    `json:"processed"`
	Created   int    `json:"created"`
	Updated   int    `json:"updated"`
	Skipped   int    `json:"skipped"`
	Failed    string `json:"failed,omitempty"`
}

// FeedUpload ingests one spreadsheet feed. The feed kind comes from the URL;
// the workbook and its sidecar fields arrive as multipart form data. Row
// failures are reported in the response but never roll back sibling rows.
func FeedUpload(
	svc ledger.Service,
	notifier notifications.Service,
	users directory.Service,
	mail mailer.Mailer,
	uploadMetrics *metrics.UploadMetrics,
	logg *logger.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		feed, err := feedFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := r.ParseMultipartForm(uploadMaxMemory); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "workbook file required"))
			return
		}
		defer file.Close()

		opts := feeds.Options{
			UploadedAt:    time.Now(),
			Advisor:       strings.TrimSpace(r.FormValue("advisor")),
			ETA:           strings.TrimSpace(r.FormValue("eta")),
			ShipmentRef:   strings.TrimSpace(r.FormValue("shipment_ref")),
			BackOrderDate: strings.TrimSpace(r.FormValue("back_order_date")),
		}

		rows, err := feeds.Parse(feed, file, opts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.UsernameFromContext(r.Context())
		start := time.Now()
		result := svc.ApplyUpload(r.Context(), feed, rows, actor)
		uploadMetrics.ObserveBatch(string(feed), result.Created, result.Updated, result.Skipped, time.Since(start))

		if notifier != nil && len(result.Notifications) > 0 {
			if err := notifier.PublishUploadBatch(r.Context(), feed, result.Notifications); err != nil {
				logg.Error(r.Context(), "upload notifications failed", err)
			}
		}
		sendUploadSummary(r, users, mail, logg, actor, result)

		resp := uploadResponse{
			Feed:      string(feed),
			Processed: result.Processed,
			Created:   result.Created,
			Updated:   result.Updated,
			Skipped:   result.Skipped,
		}
		if result.Err != nil {
			resp.Failed = result.Err.Error()
		}
		responses.WriteSuccess(w, resp)
	}
}

func feedFromRequest(r *http.Request) (enums.FeedKind, error) {
	raw := chi.URLParam(r, "feed")
	feed, err := enums.ParseFeedKind(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown feed kind")
	}
	return feed, nil
}

// sendUploadSummary emails the uploader a digest of what the batch changed.
// Missing email configuration or address downgrades to a log line.
func sendUploadSummary(r *http.Request, users directory.Service, mail mailer.Mailer, logg *logger.Logger, actor string, result ledger.BatchResult) {
	if mail == nil || users == nil || actor == "" || len(result.Notifications) == 0 {
		return
	}

	user, err := users.FindByUsername(r.Context(), actor)
	if err != nil || user.Email == "" {
		logg.Warn(r.Context(), "upload summary not emailed: uploader has no address")
		return
	}
	if err := mail.SendBatchSummary(r.Context(), user.Email, result.Notifications); err != nil {
		logg.Error(r.Context(), "upload summary email failed", err)
	}
}
