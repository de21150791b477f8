package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "github.com/idea2prd/idea2prd/internal/errors"
	"github.com/idea2prd/idea2prd/store"
)

// userIDHeader carries the caller identity. Authentication itself lives in
// front of this service; an absent header maps to the single-tenant default
// user.
const userIDHeader = "X-User-ID"

const defaultUserID int32 = 1

// currentUserID resolves the caller's user id from the request.
func currentUserID(c echo.Context) int32 {
	raw := c.Request().Header.Get(userIDHeader)
	if raw == "" {
		return defaultUserID
	}
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return defaultUserID
	}
	return int32(id)
}

// userKey returns the rate-limit bucket key for the caller.
func userKey(c echo.Context) string {
	return strconv.FormatInt(int64(currentUserID(c)), 10)
}

// findProjectByUID loads the caller's project or fails with 404.
func (s *APIV1Service) findProjectByUID(c echo.Context, uid string) (*store.Project, error) {
	userID := currentUserID(c)
	project, err := s.Store.GetProject(c.Request().Context(), &store.FindProject{UID: &uid, UserID: &userID})
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load project").SetInternal(err)
	}
	if project == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "project not found")
	}
	return project, nil
}

// gatewayHTTPError maps structured gateway error codes onto HTTP statuses.
func gatewayHTTPError(err error) *echo.HTTPError {
	switch apperrors.GetCodeFromError(err, apperrors.ErrCodeLLMUnavailable) {
	case apperrors.ErrCodeInvalidArgument:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case apperrors.ErrCodeRateLimitExceeded:
		return echo.NewHTTPError(http.StatusTooManyRequests, err.Error())
	case apperrors.ErrCodeNotFound:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case apperrors.ErrCodeContextCanceled, apperrors.ErrCodeTimeout:
		return echo.NewHTTPError(http.StatusRequestTimeout, err.Error())
	case apperrors.ErrCodeInvalidResponse:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
}

// requireGateway fails with 503 when AI is not configured.
func (s *APIV1Service) requireGateway() error {
	if s.Gateway == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "AI is not enabled on this instance")
	}
	return nil
}
