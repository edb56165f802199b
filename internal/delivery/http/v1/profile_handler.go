package v1

import (
	"net/http"

	"go-brokerage-backend/internal/delivery/http/response"
	"go-brokerage-backend/internal/domain"
	"go-brokerage-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileUC domain.ProfileUsecase
}

func NewProfileHandler(public *gin.RouterGroup, protected *gin.RouterGroup, profileUC domain.ProfileUsecase) {
	handler := &ProfileHandler{profileUC: profileUC}

	// Public: the wizard's commit step registers without a session.
	public.POST("/profiles", handler.Register)

	// Protected: reads and settings updates are scoped to the session owner.
	protectedProfiles := protected.Group("/profiles")
	{
		protectedProfiles.GET("/:email", handler.Get)
		protectedProfiles.PUT("/:email", handler.Update)
	}
}

// RegisterRequest mirrors the wizard's accumulated record: identifier and
// credential beside the free-form answers.
type RegisterRequest struct {
	Email    string         `json:"userId" binding:"required,email"`
	Password string         `json:"password" binding:"required,min=6"`
	Answers  map[string]any `json:"answers"`
}

// Register godoc
// @Summary      Create profile from onboarding answers
// @Description  Persists the wizard's accumulated answers and credential. At most one profile per email.
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Param        request  body      RegisterRequest  true  "Onboarding record"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /profiles [post]
func (h *ProfileHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest(err.Error()))
		return
	}

	profile, err := h.profileUC.Register(c.Request.Context(), &domain.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Answers:  domain.Answers(req.Answers),
	})
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusCreated, "User registered and onboarding data created successfully", profile)
}

// Get godoc
// @Summary      Fetch a profile
// @Description  Returns the redacted profile, or empty data when none exists.
// @Tags         profiles
// @Produce      json
// @Param        email  path      string  true  "Profile email"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /profiles/{email} [get]
// @Security     BearerAuth
func (h *ProfileHandler) Get(c *gin.Context) {
	email := c.Param("email")
	if !h.ownsProfile(c, email) {
		return
	}

	profile, err := h.profileUC.Get(c.Request.Context(), email)
	if err != nil {
		c.Error(err)
		return
	}

	// Absence is an empty 200, not an error: the dashboard treats a missing
	// record as "no onboarding data yet".
	response.Success(c, http.StatusOK, "Profile retrieved", profile)
}

// Update godoc
// @Summary      Partially update profile answers
// @Description  Merges the supplied answer keys; identifier and credential are immutable here.
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Param        email    path      string          true  "Profile email"
// @Param        request  body      map[string]any  true  "Answer keys to merge"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /profiles/{email} [put]
// @Security     BearerAuth
func (h *ProfileHandler) Update(c *gin.Context) {
	email := c.Param("email")
	if email == "" {
		c.Error(apperror.BadRequest("User ID is required"))
		return
	}
	if !h.ownsProfile(c, email) {
		return
	}

	var changes map[string]any
	if err := c.ShouldBindJSON(&changes); err != nil {
		c.Error(apperror.BadRequest("Invalid request body: " + err.Error()))
		return
	}

	profile, err := h.profileUC.Update(c.Request.Context(), email, domain.Answers(changes))
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "User onboarding data updated successfully", profile)
}

// ownsProfile rejects cross-user access with 403. Writes false only after
// having rendered the error.
func (h *ProfileHandler) ownsProfile(c *gin.Context, email string) bool {
	sessionEmail := c.GetString(string(domain.KeyUserEmail))
	if domain.NormalizeEmail(email) != domain.NormalizeEmail(sessionEmail) {
		response.Error(c, http.StatusForbidden, "You can only access your own profile", nil)
		c.Abort()
		return false
	}
	return true
}
