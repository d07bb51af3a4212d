package api

import (
	"encoding/json"
	"net/http"
)

type MeResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	RootID string `json:"root_id"`
}

// @Summary      Get current user info
// @Description  Returns the caller's identity and the id of their root directory.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  MeResponse
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Root not found"
// @Router       /me [get]
func (s *Server) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	root, err := s.tree.Root(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(MeResponse{
		UserID: claims.UserID,
		Email:  claims.Email,
		RootID: root.ID,
	})
}
