package api

import (
	"errors"
	"net/http"
	"strings"

	"SignalGate/internal/domain/models"
	"SignalGate/internal/rules"
	"SignalGate/internal/usecase"
	xhttp "SignalGate/pkg/http"
	xlogger "SignalGate/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AuditStatusHeader is set to "unaudited" when the ledger write failed.
const AuditStatusHeader = "X-Audit-Status"

// DecisionsEchoHandler serves the webhook intake, ledger reads and engine info.
type DecisionsEchoHandler struct {
	logger *xlogger.Logger
	svc    *usecase.DecisionService
	query  *usecase.LedgerQueryUseCase
	reg    *rules.Registry
}

func NewDecisionsEchoHandler(
	logger *xlogger.Logger,
	svc *usecase.DecisionService,
	query *usecase.LedgerQueryUseCase,
	reg *rules.Registry,
) *DecisionsEchoHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &DecisionsEchoHandler{logger: logger, svc: svc, query: query, reg: reg}
}

func (h *DecisionsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.POST("/webhook", h.Webhook)
	g.GET("/decisions", h.ListDecisions)
	g.GET("/decisions/count", h.CountDecisions)
	g.GET("/engine", h.Engine)
}

func (h *DecisionsEchoHandler) Webhook(c echo.Context) error {
	req := &models.WebhookSignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.svc.Evaluate(c.Request().Context(), req.ToSignal())
	switch {
	case errors.Is(err, usecase.ErrRateLimited):
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError(err.Error()))
	case errors.Is(err, usecase.ErrInvalidSignal):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("%s", err.Error()))
	case err != nil:
		h.logger.Error("webhook usecase error", xlogger.String("ticker", req.Ticker), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	if !res.Audited {
		c.Response().Header().Set(AuditStatusHeader, "unaudited")
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *DecisionsEchoHandler) ListDecisions(c echo.Context) error {
	req := &models.LedgerQueryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	page, err := h.query.List(c.Request().Context(), ledgerFilter(req))
	if err != nil {
		h.logger.Error("ledger query error", xlogger.Error(err))
		return h.queryError(c, err)
	}
	return xhttp.ListResponse(c, page.Entries, page.Total)
}

func (h *DecisionsEchoHandler) CountDecisions(c echo.Context) error {
	req := &models.LedgerQueryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	n, err := h.query.Count(c.Request().Context(), ledgerFilter(req))
	if err != nil {
		h.logger.Error("ledger count error", xlogger.Error(err))
		return h.queryError(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]int64{"count": n})
}

// EngineInfo describes the frozen decision configuration in force.
type EngineInfo struct {
	Spec           rules.Spec `json:"spec"`
	Checksum       string     `json:"checksum"`
	FrozenChecksum string     `json:"frozen_checksum"`
	Intact         bool       `json:"intact"`
}

func (h *DecisionsEchoHandler) Engine(c echo.Context) error {
	sum := h.reg.Checksum()
	return xhttp.SuccessResponse(c, EngineInfo{
		Spec:           h.reg.Snapshot(),
		Checksum:       sum,
		FrozenChecksum: h.reg.FrozenChecksum(),
		Intact:         sum == h.reg.FrozenChecksum(),
	})
}

func (h *DecisionsEchoHandler) Health(c echo.Context) error {
	status := http.StatusOK
	state := "ok"
	if h.reg.Checksum() != h.reg.FrozenChecksum() {
		status = http.StatusServiceUnavailable
		state = "config_tampered"
	}
	return xhttp.DataResponse(c, status, map[string]string{
		"status":         state,
		"engine_version": h.reg.EngineVersion(),
	})
}

// queryError maps inverted time ranges to 400 and everything else to 503.
func (h *DecisionsEchoHandler) queryError(c echo.Context, err error) error {
	if errors.Is(err, usecase.ErrInvalidRange) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("%s", err.Error()))
	}
	return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("ledger unavailable").WithError(err))
}

func ledgerFilter(req *models.LedgerQueryRequest) models.LedgerFilter {
	return models.LedgerFilter{
		Limit:     req.Limit,
		Since:     xhttp.ParseMillisDefault(req.Since, 0),
		Until:     xhttp.ParseMillisDefault(req.Until, 0),
		Decision:  models.LedgerDecision(strings.ToUpper(req.Decision)),
		Ticker:    models.NormalizeTicker(req.Ticker),
		Timeframe: req.Timeframe,
		Quality:   models.Quality(req.Quality),
	}
}

var _ xhttp.Handler = (*DecisionsEchoHandler)(nil)
