package progression

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"triphub/internal/response"
	"triphub/internal/services"
	"triphub/internal/validation"
)

// Controller exposes the progression engine over HTTP.
type Controller struct {
	serviceCollection *services.ServiceCollection
	validator         *validation.Validator
	writer            *response.Writer
	logger            *zap.Logger
}

// NewController creates a progression controller.
func NewController(
	serviceCollection *services.ServiceCollection,
	validator *validation.Validator,
	writer *response.Writer,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		serviceCollection: serviceCollection,
		validator:         validator,
		writer:            writer,
		logger:            logger,
	}
}

// Award handles POST /progression/award.
func (c *Controller) Award(w http.ResponseWriter, r *http.Request) {
	var req services.AwardActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writer.Error(w, r, services.NewValidationError("invalid request body", err))
		return
	}

	if err := c.validator.ValidateStruct(&req); err != nil {
		c.writer.Error(w, r, err)
		return
	}

	result, err := c.serviceCollection.Progression.Award(r.Context(), &req)
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}

	c.writer.Success(w, r, http.StatusOK, result)
}

// GetUserStats handles GET /progression/users/{id}/stats.
func (c *Controller) GetUserStats(w http.ResponseWriter, r *http.Request) {
	userID, err := c.pathUserID(r)
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}

	stats, err := c.serviceCollection.Progression.GetUserStats(r.Context(), userID)
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}

	c.writer.Success(w, r, http.StatusOK, stats)
}

// GetUserMilestones handles GET /progression/users/{id}/milestones.
func (c *Controller) GetUserMilestones(w http.ResponseWriter, r *http.Request) {
	userID, err := c.pathUserID(r)
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}

	milestones, err := c.serviceCollection.Progression.GetUserMilestones(r.Context(), userID)
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}

	c.writer.Success(w, r, http.StatusOK, milestones)
}

// GetLevels handles GET /progression/levels.
func (c *Controller) GetLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := c.serviceCollection.Progression.GetAllLevels(r.Context())
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}

	c.writer.Success(w, r, http.StatusOK, levels)
}

// GetBadges handles GET /progression/badges.
func (c *Controller) GetBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := c.serviceCollection.Progression.GetAllBadges(r.Context())
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}

	c.writer.Success(w, r, http.StatusOK, badges)
}

// GetLeaderboard handles GET /progression/leaderboard.
func (c *Controller) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	entries, err := c.serviceCollection.Progression.GetLeaderboard(r.Context(), limit)
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}

	c.writer.Success(w, r, http.StatusOK, entries)
}

// Recalculate handles POST /progression/users/{id}/recalculate. Operational
// endpoint for forcing one user back to ledger truth.
func (c *Controller) Recalculate(w http.ResponseWriter, r *http.Request) {
	userID, err := c.pathUserID(r)
	if err != nil {
		c.writer.Error(w, r, err)
		return
	}

	if err := c.serviceCollection.Progression.RecalculateUserStats(r.Context(), userID); err != nil {
		c.writer.Error(w, r, err)
		return
	}

	c.writer.Success(w, r, http.StatusOK, map[string]interface{}{
		"user_id":      userID,
		"recalculated": true,
	})
}

func (c *Controller) pathUserID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, services.NewValidationError("invalid user ID", err)
	}
	return userID, nil
}
