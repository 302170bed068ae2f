package api

import (
	"net/http"

	models "GammaDesk/internal/domain/models"
	"GammaDesk/internal/usecase"
	xhttp "GammaDesk/pkg/http"
	xlogger "GammaDesk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AnalysisHandler exposes the exposure and volatility band analyses.
type AnalysisHandler struct {
	logger      *xlogger.Logger
	expirations *usecase.ExpirationsUseCase
	analysis    *usecase.AnalysisUseCase
	macro       *usecase.MacroUseCase
	historical  *usecase.HistoricalUseCase
	bands       *usecase.BandsUseCase
	analyzeMW   []echo.MiddlewareFunc
}

func NewAnalysisHandler(
	logger *xlogger.Logger,
	expirations *usecase.ExpirationsUseCase,
	analysis *usecase.AnalysisUseCase,
	macro *usecase.MacroUseCase,
	historical *usecase.HistoricalUseCase,
	bands *usecase.BandsUseCase,
	analyzeMW ...echo.MiddlewareFunc,
) *AnalysisHandler {
	return &AnalysisHandler{
		logger:      logger,
		expirations: expirations,
		analysis:    analysis,
		macro:       macro,
		historical:  historical,
		bands:       bands,
		analyzeMW:   analyzeMW,
	}
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/expirations", h.Expirations)

	a := g.Group("/analyze", h.analyzeMW...)
	// static segments win over :greek in echo's router
	a.POST("/macro", h.Macro)
	a.POST("/historical", h.Historical)
	a.POST("/bands", h.Bands)
	a.POST("/:greek", h.Greek)
}

func (h *AnalysisHandler) Expirations(c echo.Context) error {
	req := &models.ExpirationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	list, err := h.expirations.ListAvailable(c.Request().Context(), req.Ticker)
	if err != nil {
		return h.fail(c, "expirations", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, usecase.Availability(list))
}

func (h *AnalysisHandler) Greek(c echo.Context) error {
	req := &models.GreekAnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.analysis.Analyze(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, req.Greek, err)
	}
	return xhttp.SuccessResponse(c, res.Response())
}

func (h *AnalysisHandler) Macro(c echo.Context) error {
	req := &models.MacroAnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.macro.Analyze(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "macro", err)
	}
	return xhttp.SuccessResponse(c, res.Response())
}

func (h *AnalysisHandler) Historical(c echo.Context) error {
	req := &models.HistoricalAnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.historical.Analyze(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "historical", err)
	}
	return xhttp.SuccessResponse(c, res.Response())
}

func (h *AnalysisHandler) Bands(c echo.Context) error {
	req := &models.BandsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.bands.Analyze(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "bands", err)
	}
	return xhttp.SuccessResponse(c, res.Response())
}

func (h *AnalysisHandler) fail(c echo.Context, kind string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error("analysis usecase error", xlogger.String("kind", kind), xlogger.Error(err))
	} else {
		h.logger.Warn("analysis rejected", xlogger.String("kind", kind), xlogger.String("code", appErr.Code), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
