// Package directory reads the staff table. Credential auth lives outside
// this service; the directory only answers who exists, what they can see,
// and where their email goes.
package directory

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/dealerops/partstrail-backend/pkg/db/models"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
)

// Service looks up staff for scoping and notification routing.
type Service interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	AdvisorEmail(ctx context.Context, advisorCode string) (string, error)
	ListAdvisors(ctx context.Context) ([]models.User, error)
}

type service struct {
	db *gorm.DB
}

// NewService builds the directory over the given DB handle.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	return &service{db: db}, nil
}

func (s *service) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("user %q not found", username))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return &user, nil
}

// AdvisorEmail resolves the email for an advisor code. An advisor without
// an email address is a not-found, not an empty success.
func (s *service) AdvisorEmail(ctx context.Context, advisorCode string) (string, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("service_advisor_code = ? AND email <> ''", advisorCode).
		First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("no email on file for advisor %q", advisorCode))
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load advisor")
	}
	return user.Email, nil
}

func (s *service) ListAdvisors(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("service_advisor_code <> ''").
		Order("service_advisor_code").
		Find(&users).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list advisors")
	}
	return users, nil
}
