package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/pkg/authsession"
	"ai-chatbot-be/internal/pkg/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var (
	ErrOAuthNotConfigured = errors.New("google sign-in is not configured")
	ErrEmailNotVerified   = errors.New("google account email is not verified")
)

type IOAuthService interface {
	// GoogleLoginURL returns the consent URL and the state the callback must echo.
	GoogleLoginURL() (string, string, error)
	GoogleCallback(ctx context.Context, code string) (*authsession.Session, error)
}

type oauthService struct {
	auth        IAuthService
	googleConf  *oauth2.Config
	userInfoURL string
	logger      logger.ILogger
}

func NewOAuthService(auth IAuthService, clientID, clientSecret, redirectURL string, log logger.ILogger) IOAuthService {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	return &oauthService{
		auth:        auth,
		googleConf:  conf,
		userInfoURL: googleUserInfoURL,
		logger:      log,
	}
}

func (s *oauthService) GoogleLoginURL() (string, string, error) {
	if s.googleConf.ClientID == "" {
		return "", "", ErrOAuthNotConfigured
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	state := base64.URLEncoding.EncodeToString(b)

	return s.googleConf.AuthCodeURL(state), state, nil
}

func (s *oauthService) GoogleCallback(ctx context.Context, code string) (*authsession.Session, error) {
	if s.googleConf.ClientID == "" {
		return nil, ErrOAuthNotConfigured
	}

	token, err := s.googleConf.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("OAUTH", "Code exchange failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.googleConf.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info returned status %d", resp.StatusCode)
	}

	var googleUser struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&googleUser); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	if !googleUser.VerifiedEmail || googleUser.Email == "" {
		return nil, ErrEmailNotVerified
	}

	s.logger.Info("OAUTH", "Google user verified", map[string]interface{}{"google_id": googleUser.ID})
	return s.auth.SignInVerified(ctx, strings.ToLower(googleUser.Email), entity.UserProviderGoogle)
}
