package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/homelet-labs/homelet-back/internal/config"
	"github.com/homelet-labs/homelet-back/internal/identity"
	"github.com/homelet-labs/homelet-back/internal/media"
	"github.com/homelet-labs/homelet-back/internal/service"
)

const (
	onboardingPath = "/onboarding"
	homePath       = "/"
)

type (
	MessageResp struct {
		Message string `json:"message"`
	}

	ProfileResp struct {
		ID        uint64 `json:"id"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Username  string `json:"username"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatarUrl,omitempty"`
	}

	PropertyResp struct {
		ID          uint64       `json:"id"`
		Name        string       `json:"name"`
		Tagline     string       `json:"tagline"`
		Category    string       `json:"category"`
		Country     string       `json:"country"`
		Description string       `json:"description"`
		Price       int          `json:"price"`
		Guests      int          `json:"guests"`
		Bedrooms    int          `json:"bedrooms"`
		Beds        int          `json:"beds"`
		Baths       int          `json:"baths"`
		ImageURL    string       `json:"imageUrl"`
		Amenities   string       `json:"amenities,omitempty"`
		Owner       *ProfileResp `json:"owner,omitempty"`
	}

	FavoriteResp struct {
		FavoriteID *uint64 `json:"favoriteId"`
	}

	HTTPServer struct {
		svc      *service.Service
		identity identity.Store
		logger   *zap.SugaredLogger
	}
)

func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, svc *service.Service, ids identity.Store, logger *zap.SugaredLogger) *HTTPServer {
	instance := HTTPServer{
		svc:      svc,
		identity: ids,
		logger:   logger,
	}

	e := instance.routes()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
					e.Logger.Fatal("shutting down the server")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return e.Shutdown(ctx)
		},
	})

	return &instance
}

func (s *HTTPServer) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	e.GET("/properties", s.ListProperties)
	e.GET("/properties/categories", s.ListCategories)
	e.GET("/properties/:id", s.GetProperty)
	e.POST("/properties", s.CreateProperty)

	profileG := e.Group("/profile")
	profileG.POST("", s.CreateProfile)
	profileG.GET("", s.GetProfile)
	profileG.GET("/image", s.GetProfileImage)
	profileG.PATCH("", s.UpdateProfile)
	profileG.PATCH("/image", s.UpdateProfileImage)

	rentalG := e.Group("/rentals")
	rentalG.GET("", s.ListRentals)
	rentalG.PATCH("/:id", s.UpdateRental)
	rentalG.DELETE("/:id", s.DeleteRental)

	favoriteG := e.Group("/favorites")
	favoriteG.GET("", s.ListFavorites)
	favoriteG.GET("/:propertyId", s.GetFavoriteID)
	favoriteG.POST("/:propertyId/toggle", s.ToggleFavorite)

	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyDump(func(c echo.Context, reqBody, _ []byte) {
		if len(reqBody) > 0 {
			s.logger.Debugw("request body", "path", c.Path(), "body", string(censorBody(reqBody)))
		}
	}))

	e.Use(s.AuthMiddleware)

	echo.NotFoundHandler = func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	}

	return e
}

// AuthMiddleware resolves the caller's identity with the external provider
// and stores the session on the request context. Listing reads stay public.
func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if isPublic(c) {
			return next(c)
		}

		token := sessionToken(c)
		if token == "" {
			return c.JSON(http.StatusUnauthorized, MessageResp{Message: service.ErrUnauthorized.Error()})
		}

		sess, err := s.identity.Session(c.Request().Context(), token)
		if err != nil {
			if !errors.Is(err, identity.ErrNoSession) {
				s.logger.Errorw("identity lookup failed", "error", err)
			}
			return c.JSON(http.StatusUnauthorized, MessageResp{Message: service.ErrUnauthorized.Error()})
		}

		c.Set("session", sess)
		return next(c)
	}
}

func isPublic(c echo.Context) bool {
	if c.Path() == "/ping" {
		return true
	}
	if c.Request().Method != http.MethodGet {
		return false
	}
	switch c.Path() {
	case "/properties", "/properties/:id", "/properties/categories":
		return true
	}
	return false
}

func sessionToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	for key, values := range c.Request().Header {
		if strings.ToLower(key) == "x-session-token" && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

//////// profile

func (s *HTTPServer) CreateProfile(c echo.Context) error {
	sess, err := GetSessionFromContext(c)
	if err != nil {
		return s.render(c, err)
	}

	input := service.ProfileInput{}
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, MessageResp{Message: err.Error()})
	}

	if _, err := s.svc.CreateProfile(c.Request().Context(), sess, input); err != nil {
		return s.render(c, err)
	}
	return c.Redirect(http.StatusSeeOther, homePath)
}

func (s *HTTPServer) GetProfile(c echo.Context) error {
	sess, err := GetSessionFromContext(c)
	if err != nil {
		return s.render(c, err)
	}

	profile, err := s.svc.GetProfile(c.Request().Context(), sess)
	if err != nil {
		return s.render(c, err)
	}
	return c.JSON(http.StatusOK, ProfileResp{
		ID:        profile.ID,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Username:  profile.Username,
		Email:     profile.Email,
		AvatarURL: profile.AvatarURL,
	})
}

func (s *HTTPServer) GetProfileImage(c echo.Context) error {
	sess, err := GetSessionFromContext(c)
	if err != nil {
		return s.render(c, err)
	}

	url, err := s.svc.GetProfileImage(c.Request().Context(), sess)
	if err != nil {
		return s.render(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"imageUrl": url})
}

func (s *HTTPServer) UpdateProfile(c echo.Context) error {
	sess, err := GetSessionFromContext(c)
	if err != nil {
		return s.render(c, err)
	}

	input := service.ProfileInput{}
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, MessageResp{Message: err.Error()})
	}

	if _, err := s.svc.UpdateProfile(c.Request().Context(), sess, input); err != nil {
		return s.render(c, err)
	}
	return c.JSON(http.StatusOK, MessageResp{Message: "profile updated successfully"})
}

func (s *HTTPServer) UpdateProfileImage(c echo.Context) error {
	sess, err := GetSessionFromContext(c)
	if err != nil {
		return s.render(c, err)
	}

	upload, err := readUpload(c, "image")
	if err != nil {
		return s.render(c, err)
	}

	if _, err := s.svc.UpdateProfileImage(c.Request().Context(), sess, upload); err != nil {
		return s.render(c, err)
	}
	return c.JSON(http.StatusOK, MessageResp{Message: "profile image updated successfully"})
}

//////// properties

func (s *HTTPServer) CreateProperty(c echo.Context) error {
	sess, err := GetSessionFromContext(c)
	if err != nil {
		return s.render(c, err)
	}

	input := service.PropertyInput{}
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, MessageResp{Message: err.Error()})
	}

	upload, err := readUpload(c, "image")
	if err != nil {
		return s.render(c, err)
	}

	if _, err := s.svc.CreateProperty(c.Request().Context(), sess, input, upload); err != nil {
		return s.render(c, err)
	}
	return c.Redirect(http.StatusSeeOther, homePath)
}

func (s *HTTPServer) ListProperties(c echo.Context) error {
	cards, err := s.svc.ListProperties(c.Request().Context(), c.QueryParam("search"), c.QueryParam("category"))
	if err != nil {
		return s.render(c, err)
	}
	return c.JSON(http.StatusOK, cards)
}

func (s *HTTPServer) ListCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, service.Categories)
}

func (s *HTTPServer) GetProperty(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}

	property, err := s.svc.GetProperty(c.Request().Context(), id)
	if err != nil {
		return s.render(c, err)
	}
	if property == nil {
		return c.JSON(http.StatusNotFound, MessageResp{Message: "not found"})
	}

	return c.JSON(http.StatusOK, PropertyResp{
		ID:          property.ID,
		Name:        property.Name,
		Tagline:     property.Tagline,
		Category:    property.Category,
		Country:     property.Country,
		Description: property.Description,
		Price:       property.Price,
		Guests:      property.Guests,
		Bedrooms:    property.Bedrooms,
		Beds:        property.Beds,
		Baths:       property.Baths,
		ImageURL:    property.ImageURL,
		Amenities:   property.Amenities,
		Owner: &ProfileResp{
			ID:        property.Profile.ID,
			FirstName: property.Profile.FirstName,
			LastName:  property.Profile.LastName,
			Username:  property.Profile.Username,
			AvatarURL: property.Profile.AvatarURL,
		},
	})
}

//////// rentals (the caller's own listings)

func (s *HTTPServer) ListRentals(c echo.Context) error {
	sess, err := GetSessionFromContext(c)
	if err != nil {
		return s.render(c, err)
	}

	cards, err := s.svc.ListOwnProperties(c.Request().Context(), sess)
	if err != nil {
		return s.render(c, err)
	}
	return c.JSON(http.StatusOK, cards)
}

func (s *HTTPServer) UpdateRental(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	sess, err := GetSessionFromContext(c)
	if err != nil {
		return s.render(c, err)
	}

	input := service.PropertyInput{}
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, MessageResp{Message: err.Error()})
	}

	if _, err := s.svc.UpdateProperty(c.Request().Context(), sess, id, input); err != nil {
		return s.render(c, err)
	}
	return c.JSON(http.StatusOK, MessageResp{Message: "rental updated successfully"})
}

func (s *HTTPServer) DeleteRental(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	sess, err := GetSessionFromContext(c)
	if err != nil {
		return s.render(c, err)
	}

	if err := s.svc.DeleteProperty(c.Request().Context(), sess, id); err != nil {
		return s.render(c, err)
	}
	return c.JSON(http.StatusOK, MessageResp{Message: "rental deleted successfully"})
}

//////// favorites

func (s *HTTPServer) ListFavorites(c echo.Context) error {
	sess, err := GetSessionFromContext(c)
	if err != nil {
		return s.render(c, err)
	}

	cards, err := s.svc.ListFavorites(c.Request().Context(), sess)
	if err != nil {
		return s.render(c, err)
	}
	return c.JSON(http.StatusOK, cards)
}

func (s *HTTPServer) GetFavoriteID(c echo.Context) error {
	propertyID, err := GetAndParseParam(c, "propertyId")
	if err != nil {
		return err
	}
	sess, err := GetSessionFromContext(c)
	if err != nil {
		return s.render(c, err)
	}

	favID, err := s.svc.FavoriteID(c.Request().Context(), sess, propertyID)
	if err != nil {
		return s.render(c, err)
	}

	resp := FavoriteResp{}
	if favID != 0 {
		resp.FavoriteID = &favID
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) ToggleFavorite(c echo.Context) error {
	propertyID, err := GetAndParseParam(c, "propertyId")
	if err != nil {
		return err
	}
	sess, err := GetSessionFromContext(c)
	if err != nil {
		return s.render(c, err)
	}

	message, err := s.svc.ToggleFavorite(c.Request().Context(), sess, propertyID, c.FormValue("pagePath"))
	if err != nil {
		return s.render(c, err)
	}
	return c.JSON(http.StatusOK, MessageResp{Message: message})
}

////////

// render translates service errors into the uniform {message} surface.
// Onboarding is the one non-error control transfer: a redirect.
func (s *HTTPServer) render(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, MessageResp{Message: service.ErrUnauthorized.Error()})
	case errors.Is(err, service.ErrOnboardingRequired):
		return c.Redirect(http.StatusSeeOther, onboardingPath)
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, MessageResp{Message: "not found"})
	}

	verr := &service.ValidationError{}
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, MessageResp{Message: verr.Message})
	}

	uerr := &service.UploadError{}
	if errors.As(err, &uerr) {
		s.logger.Errorw("upload failed", "error", err)
		return c.JSON(http.StatusBadGateway, MessageResp{Message: "image upload failed, please try again"})
	}

	s.logger.Errorw("request failed", "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, MessageResp{Message: "something went wrong"})
}

func GetSessionFromContext(c echo.Context) (*identity.Session, error) {
	sess, ok := c.Get("session").(*identity.Session)
	if !ok || sess == nil {
		return nil, service.ErrUnauthorized
	}
	return sess, nil
}

func GetParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path param '"+name+"'")
	}
	return value, nil
}

func GetAndParseParam(c echo.Context, name string) (uint64, error) {
	v, e := GetParam(c, name)
	if e != nil {
		return 0, e
	}
	vv, e := strconv.ParseUint(v, 10, 64)
	if e != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid path param '"+name+"'")
	}
	return vv, nil
}

// censorBody redacts the email field from logged JSON request bodies.
// Anything that is not JSON passes through untouched.
func censorBody(body []byte) []byte {
	decoded := map[string]interface{}{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return body
	}
	if _, ok := decoded["email"]; !ok {
		return body
	}
	decoded["email"] = "$censored"
	censored, err := json.Marshal(decoded)
	if err != nil {
		return body
	}
	return censored
}

// readUpload pulls the submitted file into memory. A missing file is left
// for the validation layer to report.
func readUpload(c echo.Context, field string) (*media.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "open upload")
	}
	defer f.Close()

	// One byte past the ceiling is enough for validation to reject it.
	data, err := io.ReadAll(io.LimitReader(f, media.MaxImageSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "read upload")
	}

	return &media.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
