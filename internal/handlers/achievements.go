package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bizrank/review-service/internal/types"
)

// AchievementsResponse lists a business's badges and open progress
type AchievementsResponse struct {
	BusinessID   string                      `json:"businessId"`
	Achievements []types.Achievement         `json:"achievements"`
	Progress     []types.AchievementProgress `json:"progress,omitempty"`
}

// ListAchievements returns the achievements of one business
// @Summary List achievements
// @Description Awarded achievements of a business, with progress toward unearned tiers when progress=true
// @Tags achievements
// @Produce json
// @Param businessId path string true "Business ID"
// @Param progress query bool false "Include progress rows"
// @Success 200 {object} AchievementsResponse
// @Failure 500 {object} ErrorResponse
// @Router /internal/achievements/{businessId} [get]
func (a *API) ListAchievements(c *gin.Context) {
	ctx := c.Request.Context()
	businessID := c.Param("businessId")

	held, err := a.deps.Achievements.List(ctx, businessID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	if held == nil {
		held = []types.Achievement{}
	}
	resp := AchievementsResponse{BusinessID: businessID, Achievements: held}

	if c.Query("progress") == "true" {
		resp.Progress, err = a.deps.Achievements.Progress(ctx, businessID)
		if err != nil {
			a.respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

// RevokeAchievement marks an achievement revoked
// @Summary Revoke achievement
// @Description A revoked achievement is never re-awarded
// @Tags achievements
// @Produce json
// @Param id path string true "Achievement ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} ErrorResponse
// @Router /internal/achievements/{id}/revoke [post]
func (a *API) RevokeAchievement(c *gin.Context) {
	id := c.Param("id")
	if err := a.deps.Achievements.Revoke(c.Request.Context(), id); err != nil {
		a.respondError(c, err)
		return
	}
	a.logger.Info().Str("achievement_id", id).Msg("Achievement revoked")
	c.JSON(http.StatusOK, gin.H{"id": id, "status": string(types.AchievementRevoked)})
}
