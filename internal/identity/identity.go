package identity

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/homelet-labs/homelet-back/internal/config"
)

var ErrNoSession = errors.New("no session for token")

type (
	// Session is the authenticated subject of the current request as reported
	// by the identity provider.
	Session struct {
		SubjectID string `json:"subject_id"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
		Onboarded bool   `json:"onboarded"`
	}

	// Store reads and writes per-identity state held by the external provider.
	Store interface {
		Session(ctx context.Context, token string) (*Session, error)
		SetOnboarded(ctx context.Context, subjectID string) error
	}

	HTTPStore struct {
		client *resty.Client
		logger *zap.SugaredLogger
	}
)

func NewStore(cfg *config.Config, logger *zap.SugaredLogger) Store {
	client := resty.New().
		SetBaseURL(cfg.IdentityBaseURL).
		SetAuthToken(cfg.IdentityAPIKey).
		SetTimeout(10 * time.Second)

	return &HTTPStore{
		client: client,
		logger: logger,
	}
}

func (s *HTTPStore) Session(ctx context.Context, token string) (*Session, error) {
	sess := Session{}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-Session-Token", token).
		SetResult(&sess).
		Get("/v1/session")
	if err != nil {
		return nil, errors.Wrap(err, "identity session request")
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return &sess, nil
	case http.StatusUnauthorized, http.StatusNotFound:
		return nil, ErrNoSession
	default:
		return nil, errors.Errorf("identity provider returned %d", resp.StatusCode())
	}
}

func (s *HTTPStore) SetOnboarded(ctx context.Context, subjectID string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{"onboarded": true}).
		Patch("/v1/users/" + subjectID + "/metadata")
	if err != nil {
		return errors.Wrap(err, "identity metadata request")
	}
	if resp.StatusCode() != http.StatusOK {
		return errors.Errorf("identity provider returned %d", resp.StatusCode())
	}
	s.logger.Infow("marked identity as onboarded", "subject_id", subjectID)
	return nil
}
