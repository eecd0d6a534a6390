package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/homelet-labs/homelet-back/internal/config"
)

type (
	GormForkedModel struct {
		ID        uint64 `gorm:"primarykey"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Profile is keyed by the identity provider's subject id. One row per
	// external identity, created during onboarding.
	Profile struct {
		GormForkedModel
		SubjectID  string `gorm:"unique;not null"`
		FirstName  string `gorm:"not null"`
		LastName   string `gorm:"not null"`
		Username   string `gorm:"not null"`
		Email      string `gorm:"not null"`
		AvatarURL  string
		Properties []Property `gorm:"foreignKey:ProfileSubjectID;references:SubjectID;constraint:OnDelete:CASCADE"`
		Favorites  []Favorite `gorm:"foreignKey:ProfileSubjectID;references:SubjectID;constraint:OnDelete:CASCADE"`
	}

	Property struct {
		GormForkedModel
		ProfileSubjectID string  `gorm:"not null;index"`
		Profile          Profile `gorm:"foreignKey:ProfileSubjectID;references:SubjectID"`
		Name             string  `gorm:"not null"`
		Tagline          string  `gorm:"not null"`
		Category         string  `gorm:"not null;index"`
		Country          string  `gorm:"not null"`
		Description      string  `gorm:"not null"`
		Price            int     `gorm:"not null"`
		Guests           int     `gorm:"not null"`
		Bedrooms         int     `gorm:"not null"`
		Beds             int     `gorm:"not null"`
		Baths            int     `gorm:"not null"`
		ImageURL         string  `gorm:"not null"`
		Amenities        string
		Favorites        []Favorite `gorm:"constraint:OnDelete:CASCADE"`
	}

	// Favorite marks a property as saved by a profile. The composite unique
	// index keeps concurrent toggles from producing duplicate rows.
	Favorite struct {
		GormForkedModel
		ProfileSubjectID string   `gorm:"not null;uniqueIndex:uidx_profile_property"`
		Profile          Profile  `gorm:"foreignKey:ProfileSubjectID;references:SubjectID"`
		PropertyID       uint64   `gorm:"not null;uniqueIndex:uidx_profile_property"`
		Property         Property `gorm:"constraint:OnDelete:CASCADE"`
	}
)

func NewGormClient(cfg *config.Config) (*gorm.DB, error) {
	newLogger := logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Info,
		Colorful:                  true,
		IgnoreRecordNotFoundError: false,
	})

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Profile{}); err != nil {
		return errors.Wrap(err, "migrate profile")
	}
	if err := db.AutoMigrate(&Property{}); err != nil {
		return errors.Wrap(err, "migrate property")
	}
	if err := db.AutoMigrate(&Favorite{}); err != nil {
		return errors.Wrap(err, "migrate favorite")
	}
	return nil
}
