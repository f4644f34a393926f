package main

import (
	"errors"
	"net/http"

	"bitbucket.org/travelshield/portal_backend/models"
	"bitbucket.org/travelshield/portal_backend/utils"
	"github.com/gin-gonic/gin"
)

// Every endpoint answers the same envelope the portal consumes.
type apiResponse struct {
	Status     string      `json:"Status"`
	MasterData interface{} `json:"MasterData,omitempty"`
	Message    string      `json:"Message,omitempty"`
}

func respondOK(c *gin.Context, masterData interface{}, message string) {
	c.JSON(http.StatusOK, apiResponse{Status: "Success", MasterData: masterData, Message: message})
}

func respondError(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, apiResponse{Status: "Failure", Message: message})
}

// respondMissingHandoff mirrors the SPA's silent dashboard redirect: the
// staged flow data is gone, so the client should drop back to the dashboard
// without an error toast.
func respondMissingHandoff(c *gin.Context) {
	c.JSON(http.StatusOK, apiResponse{Status: "Redirect", Message: "dashboard"})
}

func handleModelError(c *gin.Context, err error) {
	if errors.Is(err, utils.ErrorMissingHandoff) {
		respondMissingHandoff(c)
		return
	}
	if errors.Is(err, utils.ErrorRecordNotFound) {
		respondError(c, http.StatusNotFound, "record not found")
		return
	}
	respondError(c, http.StatusBadRequest, err.Error())
}

// requireUser resolves the session user; aborts with 401 when the request
// carries no valid session.
func requireUser(c *gin.Context) (*models.User, bool) {
	username, ok := utils.GetUsernameFromContext(c.Request.Context())
	if !ok || username == "" {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	user, err := models.GetUserByUsername(c.Request.Context(), username)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return user, true
}

func requireAdmin(c *gin.Context) (*models.User, bool) {
	// jwt claims already tell us non-admins apart; refuse before the lookup
	if isAdmin, ok := utils.GetIsAdminFromContext(c.Request.Context()); ok && !isAdmin {
		respondError(c, http.StatusForbidden, "admin access required")
		return nil, false
	}
	user, ok := requireUser(c)
	if !ok {
		return nil, false
	}
	if user.EmployeeType != models.EmployeeTypeAdmin {
		respondError(c, http.StatusForbidden, "admin access required")
		return nil, false
	}
	return user, true
}
