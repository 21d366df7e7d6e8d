package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID extracts the authenticated user's id from the context.
// JWTAuth stores the raw "sub" claim, which arrives as a float64 after
// JSON decoding; string is handled for completeness. The second return
// value is false when no authenticated user is present.
func currentUserID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), true
	case uint64:
		return v, true
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}
