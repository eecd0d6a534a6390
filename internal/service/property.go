package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"github.com/homelet-labs/homelet-back/internal/countries"
	"github.com/homelet-labs/homelet-back/internal/db"
	"github.com/homelet-labs/homelet-back/internal/identity"
	"github.com/homelet-labs/homelet-back/internal/media"
)

const viewTTL = 5 * time.Minute

// Categories a listing can be filed under.
var Categories = []string{
	"cabin", "airstream", "tent", "warehouse", "cottage",
	"magic", "container", "caravan", "tiny", "lodge",
}

type (
	PropertyInput struct {
		Name        string `form:"name" json:"name" validate:"required,min=2,max=100"`
		Tagline     string `form:"tagline" json:"tagline" validate:"required,min=2,max=100"`
		Category    string `form:"category" json:"category" validate:"required,oneof=cabin airstream tent warehouse cottage magic container caravan tiny lodge"`
		Country     string `form:"country" json:"country" validate:"required"`
		Description string `form:"description" json:"description" validate:"required,min=10,max=2500"`
		Price       int    `form:"price" json:"price" validate:"required,min=1"`
		Guests      int    `form:"guests" json:"guests" validate:"required,min=1"`
		Bedrooms    int    `form:"bedrooms" json:"bedrooms" validate:"required,min=1"`
		Beds        int    `form:"beds" json:"beds" validate:"required,min=1"`
		Baths       int    `form:"baths" json:"baths" validate:"required,min=1"`
		Amenities   string `form:"amenities" json:"amenities"`
	}

	// PropertyCard is the reduced projection used by listing views.
	PropertyCard struct {
		ID       uint64 `json:"id"`
		Name     string `json:"name"`
		Tagline  string `json:"tagline"`
		Category string `json:"category"`
		Country  string `json:"country"`
		Price    int    `json:"price"`
		ImageURL string `json:"imageUrl"`
	}
)

func (s *Service) validatePropertyInput(input *PropertyInput) error {
	if err := s.validateInput(input); err != nil {
		return err
	}
	if !countries.IsValidCode(input.Country) {
		return newValidationError("country", "must be a valid country code")
	}
	return nil
}

// CreateProperty validates the descriptive fields and the image together,
// uploads the image and then persists the listing.
func (s *Service) CreateProperty(ctx context.Context, sess *identity.Session, input PropertyInput, upload *media.Upload) (*db.Property, error) {
	profile, err := s.requireProfile(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := s.validatePropertyInput(&input); err != nil {
		return nil, err
	}
	if err := media.ValidateImage(upload); err != nil {
		return nil, &ValidationError{Field: "image", Message: err.Error()}
	}

	url, err := s.uploader.Upload(ctx, upload)
	if err != nil {
		return nil, &UploadError{Err: err}
	}

	property := db.Property{
		ProfileSubjectID: profile.SubjectID,
		Name:             input.Name,
		Tagline:          input.Tagline,
		Category:         input.Category,
		Country:          strings.ToUpper(input.Country),
		Description:      input.Description,
		Price:            input.Price,
		Guests:           input.Guests,
		Bedrooms:         input.Bedrooms,
		Beds:             input.Beds,
		Baths:            input.Baths,
		ImageURL:         url,
		Amenities:        input.Amenities,
	}
	res := s.db.WithContext(ctx).Create(&property)
	if res.Error != nil {
		return nil, &StorageError{Err: res.Error}
	}

	s.invalidate(ctx, "/")
	return &property, nil
}

// ListProperties is unauthenticated. Search matches case-insensitively
// against name or tagline; category filters by equality. The unfiltered home
// view is served through the cache.
func (s *Service) ListProperties(ctx context.Context, search, category string) ([]PropertyCard, error) {
	cacheable := search == "" && category == ""
	if cacheable {
		cards := make([]PropertyCard, 0)
		hit, err := s.cache.Get(ctx, "/", &cards)
		if err != nil {
			s.logger.Warnw("cache read failed", "error", err)
		} else if hit {
			return cards, nil
		}
	}

	q := squirrel.
		Select("p.id", "p.name", "p.tagline", "p.category", "p.country", "p.price", "p.image_url").
		From("properties p").
		OrderBy("p.id")
	if search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where(squirrel.Or{
			squirrel.Expr("lower(p.name) LIKE ?", like),
			squirrel.Expr("lower(p.tagline) LIKE ?", like),
		})
	}
	if category != "" {
		q = q.Where(squirrel.Eq{"p.category": category})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, &StorageError{Err: err}
	}

	cards := make([]PropertyCard, 0)
	res := s.db.WithContext(ctx).Raw(sql, args...).Scan(&cards)
	if res.Error != nil {
		return nil, &StorageError{Err: res.Error}
	}

	if cacheable {
		if err := s.cache.Set(ctx, "/", cards, viewTTL); err != nil {
			s.logger.Warnw("cache write failed", "error", err)
		}
	}
	return cards, nil
}

// ListOwnProperties returns the caller's listings in card projection.
func (s *Service) ListOwnProperties(ctx context.Context, sess *identity.Session) ([]PropertyCard, error) {
	profile, err := s.requireProfile(ctx, sess)
	if err != nil {
		return nil, err
	}

	sql, args, err := squirrel.
		Select("p.id", "p.name", "p.tagline", "p.category", "p.country", "p.price", "p.image_url").
		From("properties p").
		Where(squirrel.Eq{"p.profile_subject_id": profile.SubjectID}).
		OrderBy("p.id").
		ToSql()
	if err != nil {
		return nil, &StorageError{Err: err}
	}

	cards := make([]PropertyCard, 0)
	res := s.db.WithContext(ctx).Raw(sql, args...).Scan(&cards)
	if res.Error != nil {
		return nil, &StorageError{Err: res.Error}
	}
	return cards, nil
}

// GetProperty returns the full row joined with its owning profile, or nil
// when absent.
func (s *Service) GetProperty(ctx context.Context, id uint64) (*db.Property, error) {
	property := db.Property{}
	res := s.db.WithContext(ctx).Preload("Profile").First(&property, id)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, &StorageError{Err: res.Error}
	}
	return &property, nil
}

// UpdateProperty mutates a listing. Ownership is enforced in the statement:
// a row owned by someone else behaves like a missing one.
func (s *Service) UpdateProperty(ctx context.Context, sess *identity.Session, id uint64, input PropertyInput) (*db.Property, error) {
	profile, err := s.requireProfile(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := s.validatePropertyInput(&input); err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).
		Model(&db.Property{}).
		Where("id = ? AND profile_subject_id = ?", id, profile.SubjectID).
		Updates(map[string]interface{}{
			"name":        input.Name,
			"tagline":     input.Tagline,
			"category":    input.Category,
			"country":     strings.ToUpper(input.Country),
			"description": input.Description,
			"price":       input.Price,
			"guests":      input.Guests,
			"bedrooms":    input.Bedrooms,
			"beds":        input.Beds,
			"baths":       input.Baths,
			"amenities":   input.Amenities,
		})
	if res.Error != nil {
		return nil, &StorageError{Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.invalidate(ctx, "/", fmt.Sprintf("/properties/%d", id), "/rentals")

	property := db.Property{}
	if err := s.db.WithContext(ctx).First(&property, id).Error; err != nil {
		return nil, &StorageError{Err: err}
	}
	return &property, nil
}

func (s *Service) DeleteProperty(ctx context.Context, sess *identity.Session, id uint64) error {
	profile, err := s.requireProfile(ctx, sess)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Where("profile_subject_id = ?", profile.SubjectID).
		Delete(&db.Property{}, id)
	if res.Error != nil {
		return &StorageError{Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	s.invalidate(ctx, "/", fmt.Sprintf("/properties/%d", id), "/rentals", "/favorites")
	return nil
}
