package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait    = 10 * time.Second
	wsMaxMessage   = 64 << 10
	wsStatusOK     = "ok"
	wsStatusFailed = "error"
)

// wsRequest 一条会话内的预测请求
type wsRequest struct {
	ID       string             `json:"id,omitempty"`
	Disease  string             `json:"disease"`
	Features []float64          `json:"features,omitempty"`
	Fields   map[string]float64 `json:"fields,omitempty"`
}

// wsResponse 预测结果或错误，ID 原样回传
type wsResponse struct {
	ID     string           `json:"id,omitempty"`
	Status string           `json:"status"`
	Code   int              `json:"code"`
	Result *predictResponse `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func (a *API) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if originAllowed(a.allowedOrigins, origin) {
				return true
			}
			// 同源请求总是允许
			u, err := url.Parse(origin)
			return err == nil && u.Host == r.Host
		},
	}
}

// handlePredictSocket 在一条WebSocket连接上依次处理预测请求
func (a *API) handlePredictSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := a.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessage)

	requestID := GetRequestID(r.Context())
	a.logger.Debug("websocket session opened", zap.String("request_id", requestID))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				a.logger.Warn("websocket read failed", zap.String("request_id", requestID), zap.Error(err))
			}
			return
		}

		resp := a.handleSocketMessage(r, message)
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(resp); err != nil {
			a.logger.Warn("websocket write failed", zap.String("request_id", requestID), zap.Error(err))
			return
		}
	}
}

func (a *API) handleSocketMessage(r *http.Request, message []byte) wsResponse {
	var req wsRequest
	if err := json.Unmarshal(message, &req); err != nil {
		return wsResponse{Status: wsStatusFailed, Code: http.StatusBadRequest, Error: "invalid message: " + err.Error()}
	}

	result, status, err := a.predict(r.Context(), req.Disease, predictRequest{
		Features: req.Features,
		Fields:   req.Fields,
	})
	if err != nil {
		return wsResponse{ID: req.ID, Status: wsStatusFailed, Code: status, Error: err.Error()}
	}
	return wsResponse{ID: req.ID, Status: wsStatusOK, Code: status, Result: &result}
}
