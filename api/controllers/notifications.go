package controllers

import (
	"net/http"

	"github.com/dealerops/partstrail-backend/api/middleware"
	"github.com/dealerops/partstrail-backend/api/responses"
	"github.com/dealerops/partstrail-backend/api/validators"
	"github.com/dealerops/partstrail-backend/internal/directory"
	"github.com/dealerops/partstrail-backend/internal/notifications"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
	"github.com/dealerops/partstrail-backend/pkg/logger"
)

func recipientFromRequest(r *http.Request, users directory.Service) (notifications.Recipient, error) {
	username := middleware.UsernameFromContext(r.Context())
	if username == "" {
		return notifications.Recipient{}, pkgerrors.New(pkgerrors.CodeForbidden, "user identity required")
	}

	user, err := users.FindByUsername(r.Context(), username)
	if err != nil {
		return notifications.Recipient{}, err
	}
	return notifications.Recipient{
		UserID:      user.ID,
		AdvisorCode: user.ServiceAdvisorCode,
		UserType:    user.UserType,
	}, nil
}

// ListNotifications returns the caller's unread notifications, including
// global broadcasts.
func ListNotifications(svc notifications.Service, users directory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recipient, err := recipientFromRequest(r, users)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.UnreadFor(r.Context(), recipient)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "notificationId")
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

func MarkAllNotificationsRead(svc notifications.Service, users directory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recipient, err := recipientFromRequest(r, users)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkAllRead(r.Context(), recipient); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}
