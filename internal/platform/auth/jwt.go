// Package auth validates the bearer tokens issued by the (out of scope)
// user-account service and resolves the driver identity embedded in the
// `user_id` / `userId` claim (spec §4.E, §6).
//
// Structured after order/internal/transport/http/middleware/auth.go's
// header-parsing and gin.HandlerFunc shape, but verifies the token locally
// with HMAC-SHA256 instead of delegating to a remote auth microservice:
// spec §4.E treats authorization as a pure function
// `authorize(request) -> driver_id | error`, which rules out the teacher's
// network round trip.
package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload this system expects: a driver identity under
// either `user_id` or `userId`.
type Claims struct {
	UserID  int64 `json:"user_id,omitempty"`
	UserID2 int64 `json:"userId,omitempty"`
	jwt.RegisteredClaims
}

func (c Claims) driverID() int64 {
	if c.UserID != 0 {
		return c.UserID
	}
	return c.UserID2
}

// Verifier validates bearer tokens against a shared HMAC secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Messages are the literal Korean error bodies from spec §6.
const (
	MsgMissing = "토큰이 없습니다"
	MsgInvalid = "유효하지 않은 토큰입니다"
	MsgExpired = "토큰이 만료되었습니다"
)

// Verify parses and validates a bearer token, returning the driver id
// embedded in its claims.
func (v *Verifier) Verify(bearer string) (int64, error) {
	if bearer == "" {
		return 0, &AuthError{Message: MsgMissing}
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(bearer, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})

	if err != nil {
		if strings.Contains(err.Error(), "expired") {
			return 0, &AuthError{Message: MsgExpired}
		}
		return 0, &AuthError{Message: MsgInvalid}
	}
	if !token.Valid {
		return 0, &AuthError{Message: MsgInvalid}
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return 0, &AuthError{Message: MsgExpired}
	}

	return claims.driverID(), nil
}

// AuthError is a 401 with one of the literal Korean messages from spec §6.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// driverIDKey is the gin context key the middleware stores the resolved
// driver id under.
const driverIDKey = "driver_id"

// Middleware returns a gin middleware that authorizes the request and
// stores the resolved driver id in the request context, aborting with 401
// on any failure (missing/invalid/expired token).
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		bearer := strings.TrimPrefix(header, "Bearer ")
		if bearer == header && header != "" {
			// header present but not "Bearer <token>" shaped
			bearer = ""
		}

		driverID, err := v.Verify(bearer)
		if err != nil {
			msg := MsgInvalid
			if ae, ok := err.(*AuthError); ok {
				msg = ae.Message
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
			c.Abort()
			return
		}

		c.Set(driverIDKey, driverID)
		c.Next()
	}
}

// DriverID extracts the driver id the Middleware stored on this request.
func DriverID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(driverIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
