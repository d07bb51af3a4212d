package api

import (
	"filezone/internal/auth"
	"filezone/internal/websocket"
	"net/http"

	"go.uber.org/zap"
)

// ServeWsHandler streams the caller's tree events. Browsers cannot set
// headers on websocket requests, so the token may also come in the query
// string. Accounts without a tree get nothing to subscribe to.
func (s *Server) ServeWsHandler(w http.ResponseWriter, r *http.Request) {
	tokenString, err := bearerToken(r)
	if err != nil {
		http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
		return
	}
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}
	if tokenString == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	claims, err := auth.VerifyJWT(tokenString, s.config.JWT.Secret)
	if err != nil {
		s.logger.Debug("websocket token rejected", zap.Error(err))
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	if _, err := s.tree.Root(r.Context(), claims.UserID); err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := websocket.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return
	}

	client := websocket.NewClient(s.wsHub, conn, claims.UserID)
	s.wsHub.Register <- client
	s.logger.Debug("websocket subscribed", zap.String("user_id", claims.UserID))

	go client.ReadPump()
	go client.WritePump()
}
