package handlers

import (
	"errors"
	"net/http"

	"grow_controller/internal/engine"
	"grow_controller/internal/models"
	"grow_controller/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	msgNoChanges = "No changes needed"

	errGetState     = "failed to load state"
	errSaveState    = "Failed to save state"
	errUnavailable  = "controller is not running"
	errGetSchedules = "failed to load schedules"
	errIrrigation   = "failed to control irrigation"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...any) {
	if err != nil {
		fields := append([]any{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"success": false, "error": userMsg})
}

// engineStatus maps engine failures that are not the caller's fault.
func engineStatus(err error) int {
	if errors.Is(err, engine.ErrEngineStopped) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// isBadUpdate reports errors caused by the request content.
func isBadUpdate(err error) bool {
	for _, target := range []error{
		service.ErrInvalidValue,
		service.ErrUnknownUpdateType,
		service.ErrInvalidPulse,
		engine.ErrUnknownCurve,
		engine.ErrInvalidCurve,
		engine.ErrEmptyID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IrrigationRequest is the optional body of a manual irrigation run. Zero
// fields use the configured setpoints.
type IrrigationRequest struct {
	Duration int `json:"duration" example:"10"`
	Interval int `json:"interval" example:"60"`
	Count    int `json:"count" example:"3"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Current state
// @Description  Buttons, setpoints and fan curves as persisted.
// @Tags         grow
// @Produce      json
// @Success      200  {object}  models.AppState
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	st, err := h.services.Monitoring.State(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, engineStatus(err), errGetState, "get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Live overview
// @Description  Latest sensor snapshot, channel values, manual overrides, fan speeds and irrigation status.
// @Tags         grow
// @Produce      json
// @Success      200  {object}  engine.Overview
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/overview [get]
// @Security     BearerAuth
func (h *Handler) getOverview(c *gin.Context) {
	ov, err := h.services.Monitoring.Overview(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, engineStatus(err), errUnavailable, "get_overview_failed", err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

// @Summary      Apply a GUI change
// @Description  type is button, setpoint or saveFanCurve. Hardware buttons become manual overrides.
// @Tags         grow
// @Accept       json
// @Produce      json
// @Param        body  body      service.UpdateRequest  true  "Change"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      403   {object}  map[string]string
// @Failure      500   {object}  map[string]interface{}
// @Router       /api/v1/update [post]
// @Security     BearerAuth
func (h *Handler) update(c *gin.Context) {
	var req service.UpdateRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	changed, err := h.services.Control.Update(c.Request.Context(), req)
	switch {
	case err != nil && isBadUpdate(err):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, engine.ErrEngineStopped):
		h.logAndJSONError(c, http.StatusServiceUnavailable, errUnavailable, "update_failed", err, "type", req.Type, "id", req.ID)
	case err != nil:
		h.logAndJSONError(c, http.StatusInternalServerError, errSaveState, "update_save_failed", err, "type", req.Type, "id", req.ID)
	case !changed:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": msgNoChanges})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// @Summary      Pending schedule events
// @Tags         grow
// @Produce      json
// @Success      200  {object}  models.Upcoming
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/schedules [get]
// @Security     BearerAuth
func (h *Handler) getSchedules(c *gin.Context) {
	up, err := h.services.Monitoring.Schedules(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, engineStatus(err), errGetSchedules, "get_schedules_failed", err)
		return
	}
	c.JSON(http.StatusOK, up)
}

// @Summary      Connection status
// @Description  Flags for every serial endpoint, the actuator link and the server itself.
// @Tags         grow
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Router       /api/v1/connection [get]
// @Security     BearerAuth
func (h *Handler) getConnection(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Monitoring.Connection())
}

// @Summary      Run irrigation now
// @Tags         irrigation
// @Accept       json
// @Produce      json
// @Param        body  body      IrrigationRequest  false  "Pulse parameters"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      403   {object}  map[string]string
// @Router       /api/v1/irrigation/start [post]
// @Security     BearerAuth
func (h *Handler) startIrrigation(c *gin.Context) {
	var req IrrigationRequest
	if c.Request.ContentLength != 0 {
		if ok := h.bindJSONOrBadRequest(c, &req); !ok {
			return
		}
	}
	id, err := h.services.Control.StartIrrigation(c.Request.Context(), models.PulseParams{
		Duration: req.Duration,
		Interval: req.Interval,
		Count:    req.Count,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidPulse) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		h.logAndJSONError(c, engineStatus(err), errIrrigation, "irrigation_start_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sequence_id": id})
}

// @Summary      Cancel irrigation
// @Description  Stops the running sequence and forces the pump off.
// @Tags         irrigation
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]string
// @Router       /api/v1/irrigation/cancel [post]
// @Security     BearerAuth
func (h *Handler) cancelIrrigation(c *gin.Context) {
	if err := h.services.Control.CancelIrrigation(c.Request.Context()); err != nil {
		h.logAndJSONError(c, engineStatus(err), errIrrigation, "irrigation_cancel_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
