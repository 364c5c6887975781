package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"energyexchange/internal/stream"
)

func (s *Server) handleStreamTrades(w http.ResponseWriter, r *http.Request) {
	if err := stream.Serve(s.hub, w, r); err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
	}
}
