// Package auth identifies the acting principal: the wallet address of the
// issuer making the request.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"certledger/internal/certificate/models"
	"certledger/pkg/requestcontext"
)

// WalletHeader names the wallet in development mode, where no token is
// required.
const WalletHeader = "X-Wallet-Address"

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	Wallet string
	JTI    string // JWT ID, logged for traceability
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// Authenticate resolves the principal from a bearer token or, when
// allowHeader is set, from the X-Wallet-Address header. Requests without
// credentials pass through anonymously; invalid credentials are rejected.
func Authenticate(validator JWTValidator, allowHeader bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				if validator == nil {
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Token authentication is not configured")
					return
				}
				claims, err := validator.ValidateToken(token)
				if err != nil {
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"error", err,
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
					return
				}
				wallet, err := models.ParseWalletAddress(claims.Wallet)
				if err != nil {
					logger.WarnContext(ctx, "unauthorized access - token subject is not a wallet",
						"jti", claims.JTI,
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
					return
				}
				next.ServeHTTP(w, r.WithContext(requestcontext.WithPrincipal(ctx, wallet)))
				return
			}

			if raw := r.Header.Get(WalletHeader); raw != "" && allowHeader {
				wallet, err := models.ParseWalletAddress(raw)
				if err != nil {
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid wallet address")
					return
				}
				next.ServeHTTP(w, r.WithContext(requestcontext.WithPrincipal(ctx, wallet)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePrincipal rejects anonymous requests.
func RequirePrincipal(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if requestcontext.Principal(ctx).IsZero() {
				logger.WarnContext(ctx, "unauthorized access - missing credentials",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
