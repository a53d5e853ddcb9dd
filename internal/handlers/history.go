package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"grow_controller/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid     = "invalid 'from' time; use RFC3339, YYYY-MM-DD or epoch milliseconds"
	errToInvalid       = "invalid 'to' time; use RFC3339, YYYY-MM-DD or epoch milliseconds"
	errIntervalInvalid = "invalid 'interval'; minutes between 1 and 1440"
	errRange           = "'from' must be <= 'to'"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"

	maxBucketMinutes = 24 * 60
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return len(s) == len(layoutDate) && !strings.ContainsAny(s, "T ")
}

// queryRange reads from/to (start/end are accepted too). A date-only 'to'
// covers the whole day. It answers 400 itself and then reports false.
func (h *Handler) queryRange(c *gin.Context) (from, to time.Time, ok bool) {
	var err error
	if qs := firstQuery(c, "from", "start"); qs != "" {
		if from, err = parseQueryTime(qs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return from, to, false
		}
	}
	if qs := firstQuery(c, "to", "end"); qs != "" {
		if to, err = parseQueryTime(qs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return from, to, false
		}
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": errRange})
		return from, to, false
	}
	return from, to, true
}

func firstQuery(c *gin.Context, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(c.Query(k)); v != "" {
			return v
		}
	}
	return ""
}

// @Summary      Hardware history
// @Description  Channel changes, oldest first. Date-only 'to' is end of day inclusive.
// @Tags         history
// @Produce      json
// @Param        from         query   string  false  "Start of range"  example(2025-08-01)
// @Param        to           query   string  false  "End of range"    example(2025-08-31)
// @Param        hardware_id  query   string  false  "Channel"  Enums(co2_valve,heater_plus,heater_minus,humidifier,dehumidifier,light,irrigation)
// @Success      200  {object}  map[string]interface{}  "count, events"
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/hardware-history [get]
// @Security     BearerAuth
func (h *Handler) getHardwareHistory(c *gin.Context) {
	from, to, ok := h.queryRange(c)
	if !ok {
		return
	}
	hardwareID := c.Query("hardware_id")
	events, err := h.services.History.Hardware(c.Request.Context(), service.HardwareFilter{
		From:       from,
		To:         to,
		HardwareID: hardwareID,
	})
	if err != nil {
		h.log.Errorw("hardware_history_failed", "err", err, "from", from, "to", to, "hardware_id", hardwareID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load hardware history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// @Summary      Sensor history
// @Description  Averages per bucket. Defaults to the last 24 hours in 5 minute buckets.
// @Tags         history
// @Produce      json
// @Param        from      query   string  false  "Start of range"
// @Param        to        query   string  false  "End of range"
// @Param        interval  query   int     false  "Bucket width in minutes"  default(5)
// @Success      200  {object}  map[string]interface{}  "success, data"
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/sensor-history [get]
// @Security     BearerAuth
func (h *Handler) getSensorHistory(c *gin.Context) {
	from, to, ok := h.queryRange(c)
	if !ok {
		return
	}
	var interval time.Duration
	if qs := c.Query("interval"); qs != "" {
		m, err := strconv.Atoi(qs)
		if err != nil || m < 1 || m > maxBucketMinutes {
			c.JSON(http.StatusBadRequest, gin.H{"error": errIntervalInvalid})
			return
		}
		interval = time.Duration(m) * time.Minute
	}
	buckets, err := h.services.History.Sensors(c.Request.Context(), service.SensorFilter{
		From:     from,
		To:       to,
		Interval: interval,
	})
	if err != nil {
		h.log.Errorw("sensor_history_failed", "err", err, "from", from, "to", to)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch sensor history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": buckets})
}

// parseQueryTime accepts RFC3339, 'YYYY-MM-DD HH:MM:SS', 'YYYY-MM-DD' and
// Unix epoch milliseconds, normalized to UTC.
func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time format %q", s)
}
