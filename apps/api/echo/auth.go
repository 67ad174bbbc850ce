package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/peakform/funnel/core"
	"github.com/peakform/funnel/core/tenant"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    []byte(core.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
	}

	orgIDHeader   = "X-Org-ID"
	apiKeyHeader  = "X-Api-Key"
	contextOrgKey = "orgID"
)

// Claims represents the authorization claims transmitted via a JWT.
// Tokens are minted by the accounts backend; this API only verifies them.
type Claims struct {
	jwt.StandardClaims
	OrgID string `json:"org_id,omitempty"`
	Email string `json:"email,omitempty"`
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

// NewUserClaims builds Claims for a user id and home org; used by the admin CLI and tests.
func NewUserClaims(userID, orgID, email string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   userID,
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrgID: orgID,
		Email: email,
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// apiKeyMiddleware guards tenant management endpoints. The caller presents their
// org id and raw key; the verified org id is stashed in the context for handlers.
func apiKeyMiddleware(svc *tenant.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			orgID := ctx.Request().Header.Get(orgIDHeader)
			key := ctx.Request().Header.Get(apiKeyHeader)
			if orgID == "" || key == "" {
				return errApiKeyMissing
			}
			if err := svc.Verify(ctx.Request().Context(), orgID, key); err != nil {
				if errors.Cause(err) == tenant.ErrNotFound || errors.Cause(err) == tenant.ErrInvalidKey {
					return errApiKeyInvalid
				}
				return errors.Wrap(err, "verifying API key")
			}
			ctx.Set(contextOrgKey, orgID)
			return next(ctx)
		}
	}
}

func getContextOrg(ctx echo.Context) (string, error) {
	if orgID, ok := ctx.Get(contextOrgKey).(string); ok && orgID != "" {
		return orgID, nil
	}
	return "", echo.NewHTTPError(http.StatusForbidden, "organization not resolved")
}
