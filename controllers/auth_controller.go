package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/playpoints/ledger/config"
	"github.com/playpoints/ledger/models"
	"github.com/playpoints/ledger/services"
	"github.com/playpoints/ledger/utils"
)

// AuthController turns third-party identities into ledger sessions. The
// provider's stable user id becomes the account handle.
type AuthController struct {
	svc *services.Services
}

func NewAuthController(svc *services.Services) *AuthController {
	return &AuthController{svc: svc}
}

// Logout invalidates the token by revoking it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token, ok := utils.BearerToken(ctx.GetHeader("Authorization"))
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(sessionTTL())
	if claims.RegisteredClaims.ExpiresAt != nil {
		expiresAt = claims.RegisteredClaims.ExpiresAt.Time
	}
	utils.RevokeToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, provider, 10*time.Minute)

	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// OAuthCallback exchanges the authorization code for an identity and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")

	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeState(state, provider) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg, err := oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	exchangeCtx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()
	token, err := cfg.Exchange(exchangeCtx, code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	identity, err := fetchOAuthIdentity(exchangeCtx, cfg, provider, token)
	if err != nil {
		utils.Logger.Warn("oauth identity lookup failed", zap.String("provider", provider), zap.Error(err))
		utils.Error(ctx, http.StatusBadGateway, 50205, "failed to load identity")
		return
	}

	handle := provider + ":" + identity.ID
	acct, err := a.svc.Accounts.Ensure(ctx.Request.Context(), handle, identity.DisplayName)
	if err != nil {
		respondError(ctx, err, 50006, "failed to persist account")
		return
	}

	jwtToken, err := utils.GenerateToken(acct.Handle, acct.DisplayName, sessionTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{"token": jwtToken, "account": accountResponse(acct)})
}

// Me returns the caller's account.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	acct, err := a.svc.Accounts.Get(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50011, "failed to load account")
		return
	}
	utils.Success(ctx, accountResponse(acct))
}

func accountResponse(acct *models.UserAccount) gin.H {
	return gin.H{
		"account":  acct,
		"is_admin": config.IsAdminHandle(acct.Handle),
	}
}

func sessionTTL() time.Duration {
	return time.Duration(config.Get().SessionTTLHours) * time.Hour
}

func oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	switch provider {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/github/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/google/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"openid", "profile"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

type oauthIdentity struct {
	ID          string
	DisplayName string
}

var identityEndpoints = map[string]string{
	"github": "https://api.github.com/user",
	"google": "https://www.googleapis.com/oauth2/v2/userinfo",
}

func fetchOAuthIdentity(ctx context.Context, cfg *oauth2.Config, provider string, token *oauth2.Token) (*oauthIdentity, error) {
	endpoint, ok := identityEndpoints[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := cfg.Client(ctx, token).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s user info request failed: %s", provider, resp.Status)
	}

	var payload struct {
		ID    json.Number `json:"id"`
		Login string      `json:"login"`
		Name  string      `json:"name"`
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload.ID.String() == "" {
		return nil, fmt.Errorf("%s returned no user id", provider)
	}
	return &oauthIdentity{
		ID:          payload.ID.String(),
		DisplayName: fallback(payload.Name, payload.Login),
	}, nil
}

func fallback(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
