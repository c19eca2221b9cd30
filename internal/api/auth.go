package api

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/kudos/internal/model"
)

const (
	contextKeyCurrentUser = "api_current_user"
	authErrorUnauthorized = "unauthorized"
	authHeaderName        = "Authorization"
	bearerPrefix          = "Bearer "
	logEventValidateToken = "validate_token"
	logEventSyncUser      = "sync_user"
	tokenLeeway           = 30 * time.Second
)

var (
	// ErrMissingAuthKey reports a validator configured with neither a shared secret nor a public key.
	ErrMissingAuthKey = errors.New("auth: missing signing key or public key")
	// ErrInvalidToken reports a bearer token that failed validation.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrMissingBearerToken reports a request without a bearer token.
	ErrMissingBearerToken = errors.New("auth: missing bearer token")
)

// CurrentUser is the authenticated caller as asserted by the identity provider.
type CurrentUser struct {
	UserID string
	Email  string
}

// TokenClaims are the identity-provider claims the API reads.
type TokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AuthConfig selects how bearer tokens are verified. A shared secret enables
// HMAC tokens; otherwise PublicKeyPEM enables RSA tokens.
type AuthConfig struct {
	SigningKey   string
	PublicKeyPEM []byte
	Issuer       string
	Audience     string
}

// TokenValidator verifies identity-provider bearer tokens.
type TokenValidator struct {
	parser     *jwt.Parser
	hmacSecret []byte
	publicKey  *rsa.PublicKey
}

// NewTokenValidator builds a TokenValidator from the configuration.
func NewTokenValidator(config AuthConfig) (*TokenValidator, error) {
	validator := &TokenValidator{}
	var validMethods []string

	signingKey := strings.TrimSpace(config.SigningKey)
	switch {
	case signingKey != "":
		validator.hmacSecret = []byte(signingKey)
		validMethods = []string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}
	case len(config.PublicKeyPEM) > 0:
		publicKey, parseErr := jwt.ParseRSAPublicKeyFromPEM(config.PublicKeyPEM)
		if parseErr != nil {
			return nil, fmt.Errorf("auth: parse public key: %w", parseErr)
		}
		validator.publicKey = publicKey
		validMethods = []string{jwt.SigningMethodRS256.Alg(), jwt.SigningMethodRS384.Alg(), jwt.SigningMethodRS512.Alg()}
	default:
		return nil, ErrMissingAuthKey
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods(validMethods),
		jwt.WithLeeway(tokenLeeway),
	}
	if issuer := strings.TrimSpace(config.Issuer); issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(issuer))
	}
	if audience := strings.TrimSpace(config.Audience); audience != "" {
		parserOptions = append(parserOptions, jwt.WithAudience(audience))
	}
	validator.parser = jwt.NewParser(parserOptions...)
	return validator, nil
}

// Validate parses the token and returns the caller it identifies.
func (validator *TokenValidator) Validate(tokenString string) (*CurrentUser, error) {
	claims := &TokenClaims{}
	token, parseErr := validator.parser.ParseWithClaims(tokenString, claims, validator.keyFor)
	if parseErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, parseErr)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &CurrentUser{UserID: subject, Email: strings.TrimSpace(claims.Email)}, nil
}

func (validator *TokenValidator) keyFor(token *jwt.Token) (any, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if validator.hmacSecret != nil {
			return validator.hmacSecret, nil
		}
	case *jwt.SigningMethodRSA:
		if validator.publicKey != nil {
			return validator.publicKey, nil
		}
	}
	return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
}

// UserSynchronizer records callers locally.
type UserSynchronizer interface {
	Sync(ctx context.Context, userID string, email string) (model.User, bool, error)
}

// AuthManager authenticates API callers and mirrors them into the user table.
type AuthManager struct {
	validator *TokenValidator
	users     UserSynchronizer
	logger    *zap.Logger
}

// NewAuthManager constructs an AuthManager.
func NewAuthManager(validator *TokenValidator, users UserSynchronizer, logger *zap.Logger) *AuthManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthManager{validator: validator, users: users, logger: logger}
}

// RequireAuthenticatedJSON enforces authentication for JSON API routes.
func (authManager *AuthManager) RequireAuthenticatedJSON() gin.HandlerFunc {
	return func(context *gin.Context) {
		if _, err := authManager.ensureUser(context); err != nil {
			context.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{jsonKeyError: authErrorUnauthorized, jsonKeyMessage: "a valid bearer token is required"})
			return
		}
		context.Next()
	}
}

// OptionalAuthentication resolves the caller when a bearer token is sent and
// lets anonymous requests through. A token that fails validation is rejected.
func (authManager *AuthManager) OptionalAuthentication() gin.HandlerFunc {
	return func(context *gin.Context) {
		_, err := authManager.ensureUser(context)
		if err != nil && !errors.Is(err, ErrMissingBearerToken) {
			context.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{jsonKeyError: authErrorUnauthorized, jsonKeyMessage: "invalid bearer token"})
			return
		}
		context.Next()
	}
}

// CurrentUserFromContext loads the current user from the request context.
func CurrentUserFromContext(context *gin.Context) (*CurrentUser, bool) {
	value, exists := context.Get(contextKeyCurrentUser)
	if !exists {
		return nil, false
	}
	currentUser, ok := value.(*CurrentUser)
	return currentUser, ok && currentUser != nil
}

func (authManager *AuthManager) ensureUser(context *gin.Context) (*CurrentUser, error) {
	if currentUser, exists := CurrentUserFromContext(context); exists {
		return currentUser, nil
	}

	tokenString, tokenPresent := bearerToken(context.GetHeader(authHeaderName))
	if !tokenPresent {
		return nil, ErrMissingBearerToken
	}
	if authManager.validator == nil {
		return nil, ErrMissingAuthKey
	}

	currentUser, validateErr := authManager.validator.Validate(tokenString)
	if validateErr != nil {
		authManager.logger.Debug(logEventValidateToken, zap.Error(validateErr))
		return nil, validateErr
	}

	if authManager.users != nil {
		if _, _, syncErr := authManager.users.Sync(context.Request.Context(), currentUser.UserID, currentUser.Email); syncErr != nil {
			authManager.logger.Warn(logEventSyncUser, zap.Error(syncErr), zap.String("user_id", currentUser.UserID))
		}
	}

	if err := SetCurrentUser(context, currentUser); err != nil {
		return nil, err
	}
	return currentUser, nil
}

func bearerToken(headerValue string) (string, bool) {
	trimmed := strings.TrimSpace(headerValue)
	if len(trimmed) <= len(bearerPrefix) || !strings.EqualFold(trimmed[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(trimmed[len(bearerPrefix):])
	return token, token != ""
}
