package echoapi

import (
	"sort"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/chihwayi/ecd-materials-generator-sub003/core"
)

// Roles issued by the identity service.
const (
	RoleTeacher        = "teacher"
	RoleSchoolAdmin    = "school_admin"
	RoleSystemAdmin    = "system_admin"
	RoleDelegatedAdmin = "delegated_admin"
	RoleParent         = "parent"
)

var (
	// StaffRoles may create and edit materials.
	StaffRoles = []string{RoleTeacher, RoleSchoolAdmin, RoleSystemAdmin, RoleDelegatedAdmin}

	contextTokenKey = "userToken"
)

// Claims represents the authorization claims transmitted via a JWT. Tokens
// are issued by the identity service; this API only verifies them.
type Claims struct {
	jwt.StandardClaims
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	SchoolID string   `json:"school_id,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// NewClaims returns claims valid for ttl. Used by tests and tooling; production
// tokens come from the identity service.
func NewClaims(conf *core.Config, person core.Person, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   person.ID,
			Audience:  conf.Server.JWTAudience,
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: person.Username,
		Email:    person.Email,
		SchoolID: person.SchoolID,
		Roles:    person.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextPerson returns the authenticated caller, for logs and share emails.
func getContextPerson(ctx echo.Context) core.Person {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return core.Person{}
	}
	return claims.person()
}

func (c Claims) person() core.Person {
	return core.Person{
		ID:       c.Subject,
		Username: c.Username,
		Email:    c.Email,
		SchoolID: c.SchoolID,
		Roles:    c.Roles,
	}
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		sort.Strings(claims.Roles)
		for _, role := range roles {
			if i := sort.SearchStrings(claims.Roles, role); i < len(claims.Roles) {
				if match := claims.Roles[i]; role == match {
					return true
				}
			}
		}
	}
	return false
}
