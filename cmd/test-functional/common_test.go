package test_functional

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
)

type propertyCard struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Tagline  string `json:"tagline"`
	Category string `json:"category"`
	Country  string `json:"country"`
	Price    int    `json:"price"`
	ImageURL string `json:"imageUrl"`
}

func seedListing(t *testing.T, ctx context.Context, owner, name, tagline, category string) {
	t.Helper()

	_, err := DBConn.Exec(ctx, `
		INSERT INTO profiles (subject_id, first_name, last_name, username, email, created_at, updated_at)
		VALUES ($1, 'Jane', 'Host', 'janehost', $2, now(), now())
		ON CONFLICT (subject_id) DO NOTHING`,
		owner, owner+"@example.com")
	assert.Nil(t, err)

	_, err = DBConn.Exec(ctx, `
		INSERT INTO properties (profile_subject_id, name, tagline, category, country, description,
			price, guests, bedrooms, beds, baths, image_url, amenities, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'PT', 'a lovely place to stay for a while',
			120, 4, 2, 2, 1, 'https://cdn.example.com/img.jpg', '', now(), now())`,
		owner, name, tagline, category)
	assert.Nil(t, err)
}

func TestListPropertiesEndpoint(t *testing.T) {
	u := AppBaseURL
	u.Path = "/properties"

	t.Run("search matches name or tagline", func(t *testing.T) {
		defer FlushDB()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		seedListing(t, ctx, "user_f1", "Villa with Pool", "sunny and bright", "cottage")
		seedListing(t, ctx, "user_f1", "City Loft", "downtown living", "warehouse")

		got := make([]propertyCard, 0)
		resp, err := resty.New().
			R().
			SetContext(ctx).
			SetQueryParam("search", "pool").
			SetResult(&got).
			Get(u.String())
		assert.Nil(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Len(t, got, 1)
		if len(got) == 1 {
			assert.Equal(t, "Villa with Pool", got[0].Name)
		}
	})

	t.Run("category filter", func(t *testing.T) {
		defer FlushDB()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		seedListing(t, ctx, "user_f1", "Villa with Pool", "sunny and bright", "cottage")
		seedListing(t, ctx, "user_f1", "Forest Cabin", "among the trees", "cabin")

		got := make([]propertyCard, 0)
		resp, err := resty.New().
			R().
			SetContext(ctx).
			SetQueryParam("category", "cabin").
			SetResult(&got).
			Get(u.String())
		assert.Nil(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Len(t, got, 1)
	})

	t.Run("unauthenticated write is rejected", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		resp, err := resty.New().
			R().
			SetContext(ctx).
			SetFormData(map[string]string{"name": "nope"}).
			Post(u.String())
		assert.Nil(t, err)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	})
}
