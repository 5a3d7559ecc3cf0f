package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	AccountTypeCustomer = "CUSTOMER"
	AccountTypeAdmin    = "ADMIN"
)

const (
	DefaultClaimNamespace = "https://storefront.local/"
	jwksRefreshInterval   = 15 * time.Minute
)

const (
	contextUserID      = "user_id"
	contextAccountType = "account_type"
)

// Authorizer builds middleware that only lets the given account types through.
type Authorizer interface {
	RequireAccountType(allowedTypes ...string) gin.HandlerFunc
}

// InternalTokenAuth validates opaque internal API tokens
func InternalTokenAuth(internalToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}
		if internalToken == "" || token != internalToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid internal API token"})
			return
		}
		c.Next()
	}
}

// JWTAuth validates JWT tokens and extracts user information
type JWTAuth struct {
	issuer    string
	audience  string
	namespace string
	keys      jwk.Set
}

// NewJWTAuth registers the tenant's JWKS in a refreshing cache.
func NewJWTAuth(ctx context.Context, auth0Domain, audience, namespace string) (*JWTAuth, error) {
	jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", auth0Domain)

	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(jwksRefreshInterval)); err != nil {
		return nil, fmt.Errorf("failed to register JWKS: %w", err)
	}

	return NewJWTAuthWithKeys(fmt.Sprintf("https://%s/", auth0Domain), audience, namespace, jwk.NewCachedSet(cache, jwksURL)), nil
}

// NewJWTAuthWithKeys verifies tokens against a fixed key set.
func NewJWTAuthWithKeys(issuer, audience, namespace string, keys jwk.Set) *JWTAuth {
	if namespace == "" {
		namespace = DefaultClaimNamespace
	}
	return &JWTAuth{
		issuer:    issuer,
		audience:  audience,
		namespace: namespace,
		keys:      keys,
	}
}

// RequireAccountType creates a middleware that validates JWT and requires specific account types
func (j *JWTAuth) RequireAccountType(allowedTypes ...string) gin.HandlerFunc {
	allowedMap := make(map[string]bool)
	for _, t := range allowedTypes {
		allowedMap[strings.ToUpper(t)] = true
	}

	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			return
		}

		opts := []jwt.ParseOption{
			jwt.WithKeySet(j.keys),
			jwt.WithValidate(true),
			jwt.WithIssuer(j.issuer),
		}
		if j.audience != "" {
			opts = append(opts, jwt.WithAudience(j.audience))
		}

		token, err := jwt.Parse([]byte(tokenStr), opts...)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": fmt.Sprintf("Invalid or expired JWT token: %v", err)})
			return
		}

		accountType, ok := j.stringClaim(c, token, "account_type")
		if !ok {
			return
		}
		accountType = strings.ToUpper(accountType)

		if !allowedMap[accountType] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": fmt.Sprintf("Access denied. Account type '%s' is not allowed. Required: %v", accountType, allowedTypes),
			})
			return
		}

		userID, ok := j.stringClaim(c, token, "user_id")
		if !ok {
			return
		}

		SetPrincipal(c, userID, accountType)
		c.Next()
	}
}

func (j *JWTAuth) stringClaim(c *gin.Context, token jwt.Token, name string) (string, bool) {
	raw, ok := token.Get(j.namespace + name)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": fmt.Sprintf("Token missing %s claim", name)})
		return "", false
	}
	value, ok := raw.(string)
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": fmt.Sprintf("Invalid %s claim", name)})
		return "", false
	}
	return value, true
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing Authorization header"})
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid Authorization header format. Expected: Bearer {token}"})
		return "", false
	}
	return parts[1], true
}

// SetPrincipal stores the caller identity for handlers.
func SetPrincipal(c *gin.Context, userID, accountType string) {
	c.Set(contextUserID, userID)
	c.Set(contextAccountType, accountType)
}

// GetUserID extracts user ID from context (set by JWT middleware)
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(contextUserID)
	return userID, userID != ""
}

// GetAccountType extracts account type from context (set by JWT middleware)
func GetAccountType(c *gin.Context) (string, bool) {
	accountType := c.GetString(contextAccountType)
	return accountType, accountType != ""
}
