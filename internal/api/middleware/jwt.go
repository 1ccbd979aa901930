package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yoockh/intervuo/internal/models"
	"github.com/yoockh/intervuo/internal/utils"
)

const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxName   = "name"
	CtxRole   = "role"
)

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// AuthConfig selects how bearer tokens are verified. With a Firebase
// project, RS256 ID tokens are checked against Keys along with issuer and
// audience. With an HS256 secret, locally signed tokens are accepted too.
type AuthConfig struct {
	FirebaseProjectID string
	HS256Secret       string
	Keys              KeySource
}

type firebaseClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{Code: utils.CodeUnauthorized, Message: msg})
}

func JWTAuth(cfg AuthConfig) gin.HandlerFunc {
	methods := []string{}
	if cfg.FirebaseProjectID != "" {
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	if cfg.HS256Secret != "" {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(methods), jwt.WithExpirationRequired()}
	if cfg.FirebaseProjectID != "" {
		opts = append(opts,
			jwt.WithIssuer("https://securetoken.google.com/"+cfg.FirebaseProjectID),
			jwt.WithAudience(cfg.FirebaseProjectID))
	}

	return func(c *gin.Context) {
		if len(methods) == 0 {
			c.AbortWithStatusJSON(http.StatusInternalServerError, apiError{
				Code:    utils.CodeInternal,
				Message: "token verification is not configured",
			})
			return
		}

		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if raw == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		claims := &firebaseClaims{}
		tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			switch t.Method.Alg() {
			case jwt.SigningMethodHS256.Alg():
				return []byte(cfg.HS256Secret), nil
			case jwt.SigningMethodRS256.Alg():
				if cfg.Keys == nil {
					return nil, errors.New("no signing keys configured")
				}
				kid, _ := t.Header["kid"].(string)
				return cfg.Keys.Key(c.Request.Context(), kid)
			}
			return nil, jwt.ErrTokenSignatureInvalid
		}, opts...)
		if err != nil || tok == nil || !tok.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}

		if claims.Subject == "" {
			abortUnauthorized(c, "missing subject")
			return
		}

		role := claims.Role
		if role == "" {
			role = "user"
		}

		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxName, claims.Name)
		c.Set(CtxRole, role)
		c.Next()
	}
}

// UserFrom reads the identity JWTAuth stored on the context.
func UserFrom(c *gin.Context) (models.AuthUser, bool) {
	id := c.GetString(CtxUserID)
	if id == "" {
		return models.AuthUser{}, false
	}
	return models.AuthUser{
		ID:    id,
		Email: c.GetString(CtxEmail),
		Name:  c.GetString(CtxName),
		Role:  c.GetString(CtxRole),
	}, true
}
