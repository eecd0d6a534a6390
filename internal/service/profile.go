package service

import (
	"context"

	"github.com/pkg/errors"

	"github.com/homelet-labs/homelet-back/internal/db"
	"github.com/homelet-labs/homelet-back/internal/identity"
	"github.com/homelet-labs/homelet-back/internal/media"
)

type ProfileInput struct {
	FirstName string `form:"firstName" json:"firstName" validate:"required,min=2,max=50"`
	LastName  string `form:"lastName" json:"lastName" validate:"required,min=2,max=50"`
	Username  string `form:"username" json:"username" validate:"required,min=2,max=50"`
}

// CreateProfile persists the onboarding submission keyed by the caller's
// subject id and flips the provider's onboarded flag.
func (s *Service) CreateProfile(ctx context.Context, sess *identity.Session, input ProfileInput) (*db.Profile, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if err := s.validateInput(&input); err != nil {
		return nil, err
	}

	profile := db.Profile{
		SubjectID: sess.SubjectID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Username:  input.Username,
		Email:     sess.Email,
		AvatarURL: sess.AvatarURL,
	}
	res := s.db.WithContext(ctx).Create(&profile)
	if res.Error != nil {
		return nil, &StorageError{Err: res.Error}
	}

	if err := s.identity.SetOnboarded(ctx, sess.SubjectID); err != nil {
		return nil, errors.Wrap(err, "set onboarded flag")
	}

	return &profile, nil
}

func (s *Service) GetProfile(ctx context.Context, sess *identity.Session) (*db.Profile, error) {
	return s.requireProfile(ctx, sess)
}

// GetProfileImage returns the caller's avatar URL.
func (s *Service) GetProfileImage(ctx context.Context, sess *identity.Session) (string, error) {
	profile, err := s.requireProfile(ctx, sess)
	if err != nil {
		return "", err
	}
	return profile.AvatarURL, nil
}

func (s *Service) UpdateProfile(ctx context.Context, sess *identity.Session, input ProfileInput) (*db.Profile, error) {
	profile, err := s.requireProfile(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := s.validateInput(&input); err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).Model(profile).Updates(db.Profile{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Username:  input.Username,
	})
	if res.Error != nil {
		return nil, &StorageError{Err: res.Error}
	}

	s.invalidate(ctx, "/profile")
	return profile, nil
}

// UpdateProfileImage uploads the new avatar before persisting its URL. A
// validation or upload failure leaves the row untouched.
func (s *Service) UpdateProfileImage(ctx context.Context, sess *identity.Session, upload *media.Upload) (*db.Profile, error) {
	profile, err := s.requireProfile(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := media.ValidateImage(upload); err != nil {
		return nil, &ValidationError{Field: "image", Message: err.Error()}
	}

	url, err := s.uploader.Upload(ctx, upload)
	if err != nil {
		return nil, &UploadError{Err: err}
	}

	res := s.db.WithContext(ctx).Model(profile).Update("avatar_url", url)
	if res.Error != nil {
		return nil, &StorageError{Err: res.Error}
	}

	s.invalidate(ctx, "/profile")
	return profile, nil
}
