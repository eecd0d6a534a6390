package service

import (
	"context"

	"github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"github.com/homelet-labs/homelet-back/internal/db"
	"github.com/homelet-labs/homelet-back/internal/identity"
)

const (
	MsgFavoriteAdded   = "added to favorites"
	MsgFavoriteRemoved = "removed from favorites"
)

// FavoriteID returns the id of the caller's favorite for a property, or 0
// when the property is not favorited.
func (s *Service) FavoriteID(ctx context.Context, sess *identity.Session, propertyID uint64) (uint64, error) {
	profile, err := s.requireProfile(ctx, sess)
	if err != nil {
		return 0, err
	}

	favorite := db.Favorite{}
	res := s.db.WithContext(ctx).
		Where("profile_subject_id = ? AND property_id = ?", profile.SubjectID, propertyID).
		First(&favorite)
	if res.Error != nil {
		if res.Error == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, &StorageError{Err: res.Error}
	}
	return favorite.ID, nil
}

// ToggleFavorite re-checks existence against storage inside the operation,
// so concurrent toggles cannot race a stale client-supplied id. The unique
// index on (profile, property) backs this up.
func (s *Service) ToggleFavorite(ctx context.Context, sess *identity.Session, propertyID uint64, pagePath string) (string, error) {
	profile, err := s.requireProfile(ctx, sess)
	if err != nil {
		return "", err
	}

	existing := db.Favorite{}
	res := s.db.WithContext(ctx).
		Where("profile_subject_id = ? AND property_id = ?", profile.SubjectID, propertyID).
		First(&existing)

	message := ""
	switch {
	case res.Error == nil:
		if err := s.db.WithContext(ctx).Delete(&db.Favorite{}, existing.ID).Error; err != nil {
			return "", &StorageError{Err: err}
		}
		message = MsgFavoriteRemoved
	case res.Error == gorm.ErrRecordNotFound:
		favorite := db.Favorite{
			ProfileSubjectID: profile.SubjectID,
			PropertyID:       propertyID,
		}
		if err := s.db.WithContext(ctx).Create(&favorite).Error; err != nil {
			return "", &StorageError{Err: err}
		}
		message = MsgFavoriteAdded
	default:
		return "", &StorageError{Err: res.Error}
	}

	paths := []string{"/favorites"}
	if pagePath != "" {
		paths = append(paths, pagePath)
	}
	s.invalidate(ctx, paths...)

	return message, nil
}

// ListFavorites returns the card projection of every property the caller has
// favorited.
func (s *Service) ListFavorites(ctx context.Context, sess *identity.Session) ([]PropertyCard, error) {
	profile, err := s.requireProfile(ctx, sess)
	if err != nil {
		return nil, err
	}

	sql, args, err := squirrel.
		Select("p.id", "p.name", "p.tagline", "p.category", "p.country", "p.price", "p.image_url").
		From("favorites f").
		Join("properties p ON p.id = f.property_id").
		Where(squirrel.Eq{"f.profile_subject_id": profile.SubjectID}).
		OrderBy("f.id").
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
