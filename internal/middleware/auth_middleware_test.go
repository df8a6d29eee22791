package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, priv *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	s, err := token.SignedString(priv)
	require.NoError(t, err)
	return s
}

func baseClaims(userID uuid.UUID, role string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"iss":  TokenIssuer,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
}

func TestValidateToken(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	userID := uuid.New()

	gotID, gotRole, err := ValidateToken(signedToken(t, priv, baseClaims(userID, RoleStudent)), &priv.PublicKey)
	require.NoError(t, err)
	require.Equal(t, userID, gotID)
	require.Equal(t, RoleStudent, gotRole)
}

func TestValidateTokenRejections(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	otherPriv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	userID := uuid.New()

	expired := baseClaims(userID, RoleStudent)
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	wrongIssuer := baseClaims(userID, RoleStudent)
	wrongIssuer["iss"] = "someone-else"

	noRole := baseClaims(userID, RoleStudent)
	delete(noRole, "role")

	badSubject := baseClaims(userID, RoleStudent)
	badSubject["sub"] = "not-a-uuid"

	cases := []struct {
		name  string
		token string
	}{
		{"expired", signedToken(t, priv, expired)},
		{"wrong issuer", signedToken(t, priv, wrongIssuer)},
		{"missing role", signedToken(t, priv, noRole)},
		{"bad subject", signedToken(t, priv, badSubject)},
		{"wrong key", signedToken(t, otherPriv, baseClaims(userID, RoleStudent))},
		{"garbage", "not.a.token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ValidateToken(tc.token, &priv.PublicKey)
			require.Error(t, err)
		})
	}
}

func TestAuthMiddlewarePopulatesContext(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	userID := uuid.New()

	var sawID uuid.UUID
	var sawRole string
	handler := AuthMiddleware(&priv.PublicKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawID, _ = UserIDFromContext(r.Context())
		sawRole, _ = r.Context().Value(ContextKeyRole).(string)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, priv, baseClaims(userID, RoleProfessor)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, userID, sawID)
	require.Equal(t, RoleProfessor, sawRole)
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	handler := AuthMiddleware(&priv.PublicKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without a token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var reached bool
	chain := AuthMiddleware(&priv.PublicKey)(RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})))

	// Student hitting an admin route.
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, priv, baseClaims(uuid.New(), RoleStudent)))
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.False(t, reached)

	// Admin passes.
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, priv, baseClaims(uuid.New(), RoleAdmin)))
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, reached)
}
