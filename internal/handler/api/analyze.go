package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"FxDesk/internal/domain/models"
	xhttp "FxDesk/pkg/http"
	"FxDesk/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

func (h *AnalysisHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}

	res, err := h.svc.Analyze(c.Request().Context(), *req, models.OriginAPI)
	if err != nil {
		return h.fail(c, "analyze", err)
	}
	return c.JSON(http.StatusOK, res)
}

// Stream serves progress events as Server-Sent Events. The run is bound to
// the request context, so a client disconnect cancels it.
func (h *AnalysisHandler) Stream(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	events := make(chan models.StreamEvent, 8)
	go h.run(c.Request().Context(), *req, models.OriginStream, events)

	for ev := range events {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			h.log.Warn("encode stream event", logger.String("event", ev.Type), logger.Error(err))
			continue
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
			// The client is gone; the request context is cancelled and the
			// run will close the channel.
			continue
		}
		w.Flush()
	}
	return nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

const wsWriteWait = 10 * time.Second

// WebSocket streams the same events as Stream, one JSON {type, data} text
// message per event, then closes normally.
func (h *AnalysisHandler) WebSocket(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", logger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// Reads only to notice the peer closing.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	events := make(chan models.StreamEvent, 8)
	go h.run(ctx, *req, models.OriginStream, events)

	for ev := range events {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(ev); err != nil {
			cancel()
			continue
		}
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "complete"),
		time.Now().Add(wsWriteWait))
	return nil
}

func (h *AnalysisHandler) run(ctx context.Context, req models.AnalyzeRequest, origin string, events chan<- models.StreamEvent) {
	if _, err := h.svc.Stream(ctx, req, origin, events); err != nil && ctx.Err() == nil {
		h.log.Warn("stream run failed", logger.String("query", req.Query), logger.Error(err))
	}
}
