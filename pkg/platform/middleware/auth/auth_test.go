package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"certledger/pkg/requestcontext"
)

const wallet = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (v stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return v.claims, v.err
}

func serve(t *testing.T, mw func(http.Handler) http.Handler, req *http.Request) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var principal string
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal = string(requestcontext.Principal(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, principal
}

func TestAuthenticate(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	t.Run("bearer token sets the principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec, principal := serve(t, Authenticate(stubValidator{claims: &JWTClaims{Wallet: wallet}}, false, logger), req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, wallet, principal)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rec, _ := serve(t, Authenticate(stubValidator{err: errors.New("expired")}, false, logger), req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"unauthorized","error_description":"Invalid or expired token"}`, rec.Body.String())
	})

	t.Run("token without a validator is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer any")
		rec, _ := serve(t, Authenticate(nil, true, logger), req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("subject that is not a wallet is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec, _ := serve(t, Authenticate(stubValidator{claims: &JWTClaims{Wallet: "alice"}}, false, logger), req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wallet header only when allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(WalletHeader, wallet)
		_, principal := serve(t, Authenticate(nil, false, logger), req)
		assert.Empty(t, principal)

		_, principal = serve(t, Authenticate(nil, true, logger), req)
		assert.Equal(t, wallet, principal)
	})

	t.Run("anonymous requests pass through", func(t *testing.T) {
		rec, principal := serve(t, Authenticate(nil, true, logger), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, principal)
	})
}

func TestRequirePrincipal(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	rec, _ := serve(t, RequirePrincipal(logger), httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(WalletHeader, wallet)
	chain := func(next http.Handler) http.Handler {
		return Authenticate(nil, true, logger)(RequirePrincipal(logger)(next))
	}
	rec, principal := serve(t, chain, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, wallet, principal)
}
