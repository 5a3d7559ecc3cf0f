package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://tenant.example.com/"
	testAudience = "https://api.storefront.local"
)

type signer struct {
	key jwk.Key
	set jwk.Set
}

func newSigner(t *testing.T) *signer {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	priv, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, priv.Set(jwk.KeyIDKey, "test-key"))
	require.NoError(t, priv.Set(jwk.AlgorithmKey, jwa.RS256))

	pub, err := jwk.PublicKeyOf(priv)
	require.NoError(t, err)
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))

	return &signer{key: priv, set: set}
}

func (s *signer) token(t *testing.T, accountType, userID string, exp time.Time) string {
	t.Helper()
	builder := jwt.NewBuilder().
		Issuer(testIssuer).
		Audience([]string{testAudience}).
		Expiration(exp)
	if accountType != "" {
		builder = builder.Claim(DefaultClaimNamespace+"account_type", accountType)
	}
	if userID != "" {
		builder = builder.Claim(DefaultClaimNamespace+"user_id", userID)
	}
	tok, err := builder.Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, s.key))
	require.NoError(t, err)
	return string(signed)
}

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/p", mw, func(c *gin.Context) {
		userID, _ := GetUserID(c)
		accountType, _ := GetAccountType(c)
		c.JSON(http.StatusOK, gin.H{"user": userID, "type": accountType})
	})
	return r
}

func TestRequireAccountType(t *testing.T) {
	s := newSigner(t)
	j := NewJWTAuthWithKeys(testIssuer, testAudience, "", s.set)
	router := newRouter(j.RequireAccountType(AccountTypeAdmin))
	later := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "admin", header: "Bearer " + s.token(t, "admin", "adm-1", later), status: http.StatusOK},
		{name: "customer is forbidden", header: "Bearer " + s.token(t, "customer", "c-1", later), status: http.StatusForbidden},
		{name: "expired", header: "Bearer " + s.token(t, "admin", "adm-1", time.Now().Add(-time.Hour)), status: http.StatusUnauthorized},
		{name: "missing user id", header: "Bearer " + s.token(t, "admin", "", later), status: http.StatusUnauthorized},
		{name: "missing account type", header: "Bearer " + s.token(t, "", "adm-1", later), status: http.StatusUnauthorized},
		{name: "no header", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "foreign key", header: "Bearer " + newSigner(t).token(t, "admin", "adm-1", later), status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/p", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"user":"adm-1","type":"ADMIN"}`, w.Body.String())
			}
		})
	}
}

func TestInternalTokenAuth(t *testing.T) {
	router := newRouter(InternalTokenAuth("s3cret"))

	for header, want := range map[string]int{
		"Bearer s3cret": http.StatusOK,
		"Bearer nope":   http.StatusUnauthorized,
		"":              http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, header)
	}
}
