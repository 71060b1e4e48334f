package api

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/pediatric-gfr-server/internal/domain"
	"github.com/pediatric-gfr-server/internal/report"
	"github.com/pediatric-gfr-server/internal/service"
)

// maxInFlight bounds concurrent evaluations per websocket connection.
const maxInFlight = 4

// wsRequest is one evaluation request on the live channel. Seq is echoed
// back so clients can match out-of-order replies.
type wsRequest struct {
	Seq int `json:"seq"`
	service.EvaluateRequest
}

type wsResponse struct {
	Seq             int                       `json:"seq"`
	Result          *service.EvaluationResult `json:"result,omitempty"`
	Recommendations []report.Recommendation   `json:"recommendations,omitempty"`
	Error           *domain.APIError          `json:"error,omitempty"`
}

// handleWebSocket evaluates every request received on the connection and
// writes one reply per request. Replies may arrive out of order.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	correlationID := requestID(c)
	logger := s.logger.WithField("correlation_id", correlationID)
	logger.Debug("Websocket connected")

	var (
		writeMu sync.Mutex
		wg      sync.WaitGroup
		sem     = make(chan struct{}, maxInFlight)
	)

	send := func(resp wsResponse) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(resp); err != nil {
			logger.WithError(err).Debug("Websocket write failed")
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WithError(err).Warn("Websocket closed unexpectedly")
			}
			break
		}

		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			send(wsResponse{Error: domain.NewAPIError(domain.CodeBadRequest, "invalid message", err.Error(), correlationID)})
			continue
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(req wsRequest) {
			defer wg.Done()
			defer func() { <-sem }()
			send(s.evaluateMessage(ctx, req, correlationID))
		}(req)
	}

	cancel()
	wg.Wait()
	logger.WithFields(logrus.Fields{"path": c.FullPath()}).Debug("Websocket disconnected")
}

func (s *Server) evaluateMessage(ctx context.Context, req wsRequest, correlationID string) wsResponse {
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	result, err := s.service.Evaluate(ctx, req.EvaluateRequest)
	if err != nil {
		return wsResponse{Seq: req.Seq, Error: domain.APIErrorFrom(err, correlationID)}
	}
	return wsResponse{
		Seq:             req.Seq,
		Result:          result,
		Recommendations: report.Recommendations(result.Report),
	}
}
