package main

import (
	"net/http"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/middlewares"
	"bitbucket.org/travelshield/portal_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"bitbucket.org/travelshield/portal_backend/utils"
)

type loginRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			if _, ok := err.(validator.ValidationErrors); ok {
				respondError(c, http.StatusBadRequest, "username and password are required")
				return
			}
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}

		info, err := models.Login(c.Request.Context(), req.Username, req.Password, req.RememberMe)
		if err != nil {
			respondError(c, http.StatusUnauthorized, err.Error())
			return
		}
		respondOK(c, info, "login successful")
	}
}

// resumeSessionHandler exchanges a valid "remember me" jwt (validated by
// AuthMiddleware) for a fresh session token.
func resumeSessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := middlewares.CtxValue(c.Request.Context())
		if claims == nil {
			respondError(c, http.StatusUnauthorized, "remember token required")
			return
		}
		info, err := models.ResumeSession(c.Request.Context(), claims.Username)
		if err != nil {
			respondError(c, http.StatusUnauthorized, err.Error())
			return
		}
		respondOK(c, info, "session resumed")
	}
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetTokenFromContext(c.Request.Context()); !ok {
			respondError(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		if c.Query("all") == "true" {
			if _, err := models.LogoutAllSessions(c.Request.Context()); err != nil {
				respondError(c, http.StatusInternalServerError, err.Error())
				return
			}
			respondOK(c, nil, "logged out everywhere")
			return
		}
		if _, err := models.Logout(c.Request.Context()); err != nil {
			respondError(c, http.StatusInternalServerError, err.Error())
			return
		}
		respondOK(c, nil, "logged out")
	}
}

func profileHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		user.PrepareGive()
		respondOK(c, user, "")
	}
}

// signupHandler is the open registration path. It only ever creates agent
// accounts; staff come from an admin via POST /users, and the very first
// admin is seeded at startup (models.EnsureBootstrapAdmin).
func signupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			if _, ok := err.(validator.ValidationErrors); ok {
				c.JSON(http.StatusBadRequest, apiResponse{Status: "Failure", MasterData: utils.ProcessValidationErrors(err), Message: "invalid signup request"})
				return
			}
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		input.EmployeeType = models.EmployeeTypeAgent
		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			handleModelError(c, err)
			return
		}
		user.PrepareGive()
		respondOK(c, user, "account created")
	}
}

func listUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireAdmin(c); !ok {
			return
		}
		users, err := models.GetAllUsers(c.Request.Context())
		if err != nil {
			handleModelError(c, err)
			return
		}
		for _, u := range users {
			u.PrepareGive()
		}
		respondOK(c, users, "")
	}
}

// dashboardHandler returns the landing payload for the caller's role. Admins
// see the review queues, employees the batches awaiting their UTR, agents the
// plan catalog plus their wallet.
func dashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		switch user.EmployeeType {
		case models.EmployeeTypeAdmin:
			pending, err := models.ListPendingReplenishApplications(ctx)
			if err != nil {
				handleModelError(c, err)
				return
			}
			batches, err := models.ListBatchPayments(ctx, models.BatchPaymentStatusUTRFilled)
			if err != nil {
				handleModelError(c, err)
				return
			}
			respondOK(c, gin.H{
				"view":              "admin",
				"pending_replenish": pending,
				"batches_to_review": batches,
			}, "")
		case models.EmployeeTypeEmp:
			batches, err := models.ListBatchPayments(ctx, models.BatchPaymentStatusPending)
			if err != nil {
				handleModelError(c, err)
				return
			}
			respondOK(c, gin.H{
				"view":        "employee",
				"open_batches": batches,
			}, "")
		default:
			plans, err := models.ListPlans(ctx)
			if err != nil {
				handleModelError(c, err)
				return
			}
			enabled := make([]*models.TravelPlan, 0, len(plans))
			for _, p := range plans {
				if config.ProductVariantEnabled(string(p.Variant)) {
					enabled = append(enabled, p)
				}
			}
			balance, err := models.WalletBalance(ctx, user.ID)
			if err != nil {
				handleModelError(c, err)
				return
			}
			respondOK(c, gin.H{
				"view":           "agent",
				"plans":          enabled,
				"wallet_balance": balance,
			}, "")
		}
	}
}

func registerUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := requireAdmin(c); !ok {
			return
		}
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}
		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			handleModelError(c, err)
			return
		}
		user.PrepareGive()
		respondOK(c, user, "user created")
	}
}
