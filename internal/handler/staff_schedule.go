package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/service"
)

// SettingsStore reads and writes the schedule tunables.
type SettingsStore interface {
	Get(ctx context.Context) (model.ScheduleSettings, error)
	Save(ctx context.Context, values map[string]int) (model.ScheduleSettings, error)
}

// ScheduleHandler serves staff schedule management: weekday templates,
// date overrides and the schedule settings.
type ScheduleHandler struct {
	Calendar ScheduleCalendar
	Settings SettingsStore
	SlotStep time.Duration
	Log      *zap.Logger
}

func NewScheduleHandler(calendar ScheduleCalendar, settings SettingsStore, step time.Duration, log *zap.Logger) *ScheduleHandler {
	if calendar == nil || settings == nil {
		panic("nil dependency passed to NewScheduleHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ScheduleHandler{Calendar: calendar, Settings: settings, SlotStep: step, Log: log}
}

// ----- DTOs -----

// timeList accepts either a JSON array of times or one comma separated
// string.
type timeList []string

func (t *timeList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = strings.Split(s, ",")
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*t = list
	return nil
}

type templateReq struct {
	Weekday int      `json:"weekday"`
	Times   timeList `json:"times"`
	Enabled *bool    `json:"is_enabled"`
}

type templatesReq struct {
	Templates []templateReq `json:"templates"`
}

type overrideReq struct {
	Date   string   `json:"date"`
	Closed bool     `json:"is_closed"`
	Times  timeList `json:"times"`
}

// Templates handles GET /v1/admin/schedule/templates.
func (h *ScheduleHandler) Templates(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	templates, err := h.Calendar.Templates(ctx)
	if err != nil {
		return serviceError(c, h.Log, err, "")
	}
	settings, err := h.Settings.Get(ctx)
	if err != nil {
		return serviceError(c, h.Log, err, "")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"templates":    templates,
		"settings":     settings,
		"slot_minutes": int(h.SlotStep / time.Minute),
	})
}

// SaveTemplates handles PUT /v1/admin/schedule/templates {templates: [...]}.
// Templates are saved in order; the first invalid one stops the request.
func (h *ScheduleHandler) SaveTemplates(c echo.Context) error {
	var req templatesReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if len(req.Templates) == 0 {
		return apiError(c, http.StatusUnprocessableEntity, "validation_error", "templates required")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	saved := make([]model.SlotTemplate, 0, len(req.Templates))
	for _, t := range req.Templates {
		out, err := h.Calendar.SaveTemplate(ctx, service.TemplateInput{
			Weekday: t.Weekday,
			Times:   t.Times,
			Enabled: t.Enabled,
		})
		if err != nil {
			return serviceError(c, h.Log, err, "")
		}
		saved = append(saved, *out)
	}
	return c.JSON(http.StatusOK, echo.Map{"templates": saved})
}

// Overrides handles GET /v1/admin/schedule/overrides.
func (h *ScheduleHandler) Overrides(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	out, err := h.Calendar.Overrides(ctx)
	if err != nil {
		return serviceError(c, h.Log, err, "")
	}
	return c.JSON(http.StatusOK, echo.Map{"overrides": out})
}

// SaveOverride handles PUT /v1/admin/schedule/overrides.
func (h *ScheduleHandler) SaveOverride(c echo.Context) error {
	var req overrideReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	o, err := h.Calendar.SaveOverride(ctx, service.OverrideInput{
		Date:   req.Date,
		Closed: req.Closed,
		Times:  req.Times,
	})
	if err != nil {
		return serviceError(c, h.Log, err, "")
	}
	return c.JSON(http.StatusOK, o)
}

// DeleteOverride handles DELETE /v1/admin/schedule/overrides/:id.
func (h *ScheduleHandler) DeleteOverride(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return apiError(c, http.StatusUnprocessableEntity, "validation_error", "override id required")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Calendar.DeleteOverride(ctx, id); err != nil {
		return serviceError(c, h.Log, err, "")
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": true})
}

// GetSettings handles GET /v1/admin/schedule/settings.
func (h *ScheduleHandler) GetSettings(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	s, err := h.Settings.Get(ctx)
	if err != nil {
		return serviceError(c, h.Log, err, "")
	}
	return c.JSON(http.StatusOK, s)
}

// SaveSettings handles PUT /v1/admin/schedule/settings.  Values are
// clamped to their bounds and unknown keys are ignored.
func (h *ScheduleHandler) SaveSettings(c echo.Context) error {
	var req map[string]int
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	s, err := h.Settings.Save(ctx, req)
	if err != nil {
		return serviceError(c, h.Log, err, "")
	}
	return c.JSON(http.StatusOK, s)
}
