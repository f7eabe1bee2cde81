package v1

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userIDCtxKey = "user_id"

// HandleAuthMiddleware establishes the caller identity from the bearer
// access token issued by the identity service. Token issuance and
// refresh live there, not here.
func (h *handlerImpl) HandleAuthMiddleware(c *gin.Context) {
	const authHeader = "Authorization"
	header := c.GetHeader(authHeader)
	if header == "" {
		h.logger.Error().Msg("authorization header required")
		respondError(c, http.StatusUnauthorized, codeUnauthorized, "Not authenticated")
		return
	}

	const bearerPrefix = "Bearer"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != bearerPrefix {
		h.logger.Error().Msg("invalid authorization header")
		respondError(c, http.StatusUnauthorized, codeUnauthorized, "Not authenticated")
		return
	}

	claims, err := h.parseJWTToken(parts[1])
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to parse token")
		respondError(c, http.StatusUnauthorized, codeUnauthorized, "Not authenticated")
		return
	}

	c.Set(userIDCtxKey, claims.Subject)
	c.Next()
}

func (h *handlerImpl) parseJWTToken(token string) (*jwt.RegisteredClaims, error) {
	claims := new(jwt.RegisteredClaims)
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(h.signingKey), nil
		},
		jwt.WithIssuer(h.jwtIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// callerID returns the user id placed into the context by the auth
// middleware.
func (h *handlerImpl) callerID(c *gin.Context) (string, bool) {
	userIDValue, exists := c.Get(userIDCtxKey)
	if !exists {
		h.logger.Error().Msg("no user id found in context")
		respondError(c, http.StatusUnauthorized, codeUnauthorized, "Not authenticated")
		return "", false
	}
	userID, _ := userIDValue.(string)
	return userID, true
}
