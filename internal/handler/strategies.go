package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"strategyhub/internal/auth"
	"strategyhub/internal/service"
	"strategyhub/internal/simulation"
	"strategyhub/internal/strategy"
)

type StrategyHandler struct {
	Strategies  *service.StrategyService
	RequireUser gin.HandlerFunc
}

func (h *StrategyHandler) Register(r *gin.Engine) {
	group := r.Group("/strategies", h.RequireUser)
	group.POST("", h.create)
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.PATCH("/:id", h.update)
	group.DELETE("/:id", h.delete)
	group.POST("/:id/simulate", h.simulate)
	group.GET("/:id/simulations", h.simulations)
}

// @Summary Create a strategy
// @Tags strategies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body object true "name, description, asset_type, status, conditions"
// @Success 201 {object} strategy.Response
// @Failure 400 {object} map[string]any
// @Router /strategies [post]
func (h *StrategyHandler) create(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}
	raw, err := c.GetRawData()
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	in, err := strategy.ParseInput(raw)
	if err != nil {
		writeBodyError(c, err)
		return
	}
	item, err := h.Strategies.Create(c.Request.Context(), owner, in)
	if err != nil {
		writeStrategyError(c, err)
		return
	}
	Created(c, strategy.FormatResponse(item))
}

// @Summary List active strategies
// @Tags strategies
// @Produce json
// @Security BearerAuth
// @Success 200 {array} strategy.Response
// @Router /strategies [get]
func (h *StrategyHandler) list(c *gin.Context) {
	owner, ok := currentOwner(c)
	if !ok {
		return
	}
	items, err := h.Strategies.ListActiveForOwner(c.Request.Context(), owner.ID)
	if err != nil {
		writeStrategyError(c, err)
		return
	}
	Ok(c, items, map[string]any{"total": len(items)})
}

// @Summary Get a strategy
// @Tags strategies
// @Produce json
// @Security BearerAuth
// @Param id path int true "strategy id"
// @Success 200 {object} strategy.Response
// @Failure 404 {object} map[string]any
// @Router /strategies/{id} [get]
func (h *StrategyHandler) get(c *gin.Context) {
	owner, id, ok := ownerAndID(c)
	if !ok {
		return
	}
	item, err := h.Strategies.FindByOwnerAndID(c.Request.Context(), owner.ID, id)
	if err != nil {
		writeStrategyError(c, err)
		return
	}
	Ok(c, strategy.FormatResponse(item), nil)
}

// @Summary Partially update a strategy
// @Tags strategies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "strategy id"
// @Param body body object true "any subset of name, description, asset_type, status, conditions"
// @Success 200 {object} strategy.Response
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /strategies/{id} [patch]
func (h *StrategyHandler) update(c *gin.Context) {
	owner, id, ok := ownerAndID(c)
	if !ok {
		return
	}
	raw, err := c.GetRawData()
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	patch, err := strategy.ParsePatch(raw)
	if err != nil {
		writeBodyError(c, err)
		return
	}
	item, err := h.Strategies.Update(c.Request.Context(), owner, id, patch)
	if err != nil {
		writeStrategyError(c, err)
		return
	}
	Ok(c, strategy.FormatResponse(item), nil)
}

// @Summary Delete a strategy
// @Tags strategies
// @Produce json
// @Security BearerAuth
// @Param id path int true "strategy id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /strategies/{id} [delete]
func (h *StrategyHandler) delete(c *gin.Context) {
	owner, id, ok := ownerAndID(c)
	if !ok {
		return
	}
	if err := h.Strategies.Delete(c.Request.Context(), owner, id); err != nil {
		writeStrategyError(c, err)
		return
	}
	Ok(c, map[string]any{"id": id, "deleted": true}, nil)
}

// @Summary Backtest a strategy
// @Tags strategies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "strategy id"
// @Param indicator query string false "indicator column, momentum by default"
// @Param body body []simulation.PriceRow true "price series"
// @Success 200 {object} simulation.Result
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /strategies/{id}/simulate [post]
func (h *StrategyHandler) simulate(c *gin.Context) {
	owner, id, ok := ownerAndID(c)
	if !ok {
		return
	}
	var rows []simulation.PriceRow
	if err := c.ShouldBindJSON(&rows); err != nil {
		Error(c, http.StatusBadRequest, "invalid price series: "+err.Error(), nil)
		return
	}
	indicator := strings.TrimSpace(c.Query("indicator"))
	res, err := h.Strategies.Simulate(c.Request.Context(), owner.ID, id, rows, indicator)
	if err != nil {
		writeStrategyError(c, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary Recent simulation runs
// @Tags strategies
// @Produce json
// @Security BearerAuth
// @Param id path int true "strategy id"
// @Param limit query int false "max runs, 50 by default"
// @Success 200 {array} models.SimulationRun
// @Failure 404 {object} map[string]any
// @Router /strategies/{id}/simulations [get]
func (h *StrategyHandler) simulations(c *gin.Context) {
	owner, id, ok := ownerAndID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := h.Strategies.ListRuns(c.Request.Context(), owner.ID, id, limit)
	if err != nil {
		writeStrategyError(c, err)
		return
	}
	Ok(c, runs, map[string]any{"total": len(runs)})
}

func currentOwner(c *gin.Context) (service.Owner, bool) {
	id, username, ok := auth.CurrentUser(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "not authenticated", nil)
		return service.Owner{}, false
	}
	return service.Owner{ID: id, Username: username}, true
}

func ownerAndID(c *gin.Context) (service.Owner, uint64, bool) {
	owner, ok := currentOwner(c)
	if !ok {
		return service.Owner{}, 0, false
	}
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		Error(c, http.StatusBadRequest, "invalid strategy id", nil)
		return service.Owner{}, 0, false
	}
	return owner, id, true
}
