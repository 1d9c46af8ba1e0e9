package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// claimsMiddleware rejects tokens issued for another audience or without a school.
func claimsMiddleware(audience string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if audience != "" && !claims.VerifyAudience(audience, true) {
				return errInvalidAudience
			}
			if claims.SchoolID == "" {
				return errNoSchool
			}
			return next(ctx)
		}
	}
}

// roleMiddleware allows the request when the caller holds one of roles.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
