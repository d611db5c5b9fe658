package middleware

// identity.go exposes the authenticated identity stored by JWTAuth.

import "github.com/labstack/echo/v4"

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c echo.Context) string {
	s, _ := c.Get(CtxUserID).(string)
	return s
}

// Role returns the authenticated role, or "" for anonymous requests.
func Role(c echo.Context) string {
	s, _ := c.Get(CtxRole).(string)
	return s
}

// rateSubject names the caller for rate limiting: the user id when
// authenticated, otherwise "anon".
func rateSubject(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
