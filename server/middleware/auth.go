package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/workerbridge/errors"
)

// KeySubject is the gin context key holding the token subject.
const KeySubject = "subject"

// AuthConfig configures bearer token checks.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Secret  string `yaml:"secret" mapstructure:"secret" validate:"required_if=Enabled true"`
	Issuer  string `yaml:"issuer" mapstructure:"issuer"`
	// QueryParam is read when no Authorization header is present. Browser
	// websocket clients cannot set headers.
	QueryParam string `yaml:"query_param" mapstructure:"query_param"`
}

// ApplyDefaults fills in the query parameter name.
func (c *AuthConfig) ApplyDefaults() {
	if c.QueryParam == "" {
		c.QueryParam = "token"
	}
}

// Auth verifies an HS256 token and stores its subject under KeySubject.
// It is a no-op when cfg.Enabled is false.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(cfg.Issuer))
	}
	parser := gojwt.NewParser(opts...)
	key := []byte(cfg.Secret)

	return func(c *gin.Context) {
		raw, err := bearer(c, cfg.QueryParam)
		if err != nil {
			abort(c, err)
			return
		}

		claims := &gojwt.RegisteredClaims{}
		_, err = parser.ParseWithClaims(raw, claims, func(*gojwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil {
			abort(c, errors.Unauthorized("invalid token").WithCause(err))
			return
		}

		c.Set(KeySubject, claims.Subject)
		c.Next()
	}
}

func bearer(c *gin.Context, queryParam string) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if tok := c.Query(queryParam); tok != "" {
			return tok, nil
		}
		return "", errors.Unauthorized("authorization required")
	}
	scheme, tok, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || tok == "" {
		return "", errors.Unauthorized(fmt.Sprintf("unsupported authorization scheme %q", scheme))
	}
	return tok, nil
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(errors.HTTPStatus(err), errors.HTTPBody(err))
}
