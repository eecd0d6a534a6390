package service

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/homelet-labs/homelet-back/internal/cache"
	"github.com/homelet-labs/homelet-back/internal/db"
	"github.com/homelet-labs/homelet-back/internal/identity"
	"github.com/homelet-labs/homelet-back/internal/media"
)

// Service is the data-access layer: one method per use case, each performing
// a single authorization check followed by one logical storage transaction.
type Service struct {
	db       *gorm.DB
	logger   *zap.SugaredLogger
	identity identity.Store
	uploader media.Uploader
	cache    cache.ViewCache
	validate *validator.Validate
}

func New(gdb *gorm.DB, logger *zap.SugaredLogger, ids identity.Store, uploader media.Uploader, vc cache.ViewCache) *Service {
	v := validator.New()

	// Violation messages echo the submitted field name, not the Go one.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Service{
		db:       gdb,
		logger:   logger,
		identity: ids,
		uploader: uploader,
		cache:    vc,
		validate: v,
	}
}

func (s *Service) validateInput(v interface{}) error {
	if err := s.validate.Struct(v); err != nil {
		return firstViolation(err)
	}
	return nil
}

// requireSession guards every authenticated operation.
func requireSession(sess *identity.Session) error {
	if sess == nil || sess.SubjectID == "" {
		return ErrUnauthorized
	}
	return nil
}

// requireProfile resolves the caller's profile row, reporting
// ErrOnboardingRequired when the identity has not onboarded yet.
func (s *Service) requireProfile(ctx context.Context, sess *identity.Session) (*db.Profile, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	profile := db.Profile{}
	res := s.db.WithContext(ctx).Where("subject_id = ?", sess.SubjectID).First(&profile)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return nil, ErrOnboardingRequired
		}
		return nil, &StorageError{Err: res.Error}
	}
	return &profile, nil
}

func (s *Service) invalidate(ctx context.Context, paths ...string) {
	if err := s.cache.Invalidate(ctx, paths...); err != nil {
		s.logger.Warnw("cache invalidation failed", "paths", paths, "error", err)
	}
}
