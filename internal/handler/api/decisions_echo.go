package api

import (
	"errors"
	"time"

	"CreditGate/internal/domain/models"
	domrepo "CreditGate/internal/domain/repository"
	"CreditGate/internal/service/feed"
	"CreditGate/internal/usecase"
	xhttp "CreditGate/pkg/http"
	xlogger "CreditGate/pkg/logger"
	"CreditGate/pkg/util"

	"github.com/labstack/echo/v4"
)

// SessionCookie carries the session token for browser clients; API
// clients send the same token as a bearer credential.
const SessionCookie = "creditgate_session"

// DecisionsEchoHandler exposes the decision pipeline over HTTP.
type DecisionsEchoHandler struct {
	logger  *xlogger.Logger
	orch    *usecase.Orchestrator
	gate    usecase.GateVerifier
	archive domrepo.DecisionArchive
	feed    *feed.Broadcaster
}

func NewDecisionsEchoHandler(logger *xlogger.Logger, orch *usecase.Orchestrator, gate usecase.GateVerifier, archive domrepo.DecisionArchive, broadcaster *feed.Broadcaster) *DecisionsEchoHandler {
	return &DecisionsEchoHandler{
		logger:  logger,
		orch:    orch,
		gate:    gate,
		archive: archive,
		feed:    broadcaster,
	}
}

func (h *DecisionsEchoHandler) RegisterRoutes(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	g := e.Group("/api", mw...)
	g.POST("/decisions", h.Submit)
	g.GET("/decisions", h.Recent)
	e.GET("/ws/decisions", h.Stream)
}

// Submit runs one decision request end to end and blocks until it
// settles or the client goes away.
func (h *DecisionsEchoHandler) Submit(c echo.Context) error {
	req := &models.DecisionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	deadline := time.Duration(req.DeadlineMs) * time.Millisecond
	sub := h.orch.Submit(c.Request().Context(), sessionToken(c), req.ApplicantRecord, deadline)

	res, err := sub.Wait(c.Request().Context())
	if err != nil {
		if errors.Is(err, c.Request().Context().Err()) {
			sub.Cancel()
			return err
		}
		h.logger.Warn("decision request failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, decisionAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

// Recent returns the caller's archived decisions for a time range.
func (h *DecisionsEchoHandler) Recent(c echo.Context) error {
	sctx, err := h.gate.Verify(c.Request().Context(), sessionToken(c))
	if err != nil {
		return xhttp.AppErrorResponse(c, decisionAppError(err))
	}

	req := &models.RecentDecisionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	now := time.Now().UTC()
	from := util.ParseTimeDefault(req.From, now.Add(-24*time.Hour))
	to := util.ParseTimeDefault(req.To, now)

	rows, err := h.archive.Query(c.Request().Context(), sctx.Identity.ID, from, to, req.Limit)
	if err != nil {
		h.logger.Error("decision archive query", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("decision archive unavailable").WithError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Stream upgrades to a WebSocket feed of completed decisions.
func (h *DecisionsEchoHandler) Stream(c echo.Context) error {
	if _, err := h.gate.Verify(c.Request().Context(), sessionToken(c)); err != nil {
		return xhttp.AppErrorResponse(c, decisionAppError(err))
	}
	return h.feed.Serve(c.Response(), c.Request())
}

// sessionToken pulls the token from the bearer header, falling back to
// the session cookie.
func sessionToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// decisionAppError maps the failure taxonomy onto HTTP statuses.
func decisionAppError(err error) *xhttp.AppError {
	var derr *models.DecisionError
	if !errors.As(err, &derr) {
		return xhttp.InternalError("decision pipeline failure").WithError(err)
	}

	switch derr.Kind {
	case models.KindInvalidInput:
		return xhttp.BadRequestError(derr.Message).WithError(derr)
	case models.KindNoSession:
		return xhttp.UnauthorizedError(derr.Message).WithError(derr)
	case models.KindIdentityUnavailable:
		return xhttp.UnauthorizedError(derr.Message).WithError(derr)
	case models.KindRateLimited:
		return xhttp.TooManyRequestsError(derr.Message).WithError(derr)
	case models.KindUpstreamUnavailable:
		return xhttp.ServiceUnavailableError(derr.Message).WithError(derr)
	case models.KindTimeout:
		return xhttp.GatewayTimeoutError(derr.Message).WithError(derr)
	default:
		return xhttp.InternalError(derr.Message).WithError(derr)
	}
}
