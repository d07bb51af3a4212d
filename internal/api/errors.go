package api

import (
	"errors"
	"filezone/internal/accounts"
	"filezone/internal/tree"
	"net/http"

	"go.uber.org/zap"
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{tree.ErrNotFound, http.StatusNotFound},
	{tree.ErrNotADirectory, http.StatusBadRequest},
	{tree.ErrNotAFile, http.StatusBadRequest},
	{tree.ErrInvalidParent, http.StatusBadRequest},
	{tree.ErrInvalidName, http.StatusBadRequest},
	{tree.ErrRootNode, http.StatusBadRequest},
	{tree.ErrDuplicateRoot, http.StatusConflict},
	{tree.ErrNameConflict, http.StatusConflict},
	{tree.ErrStorageUnavailable, http.StatusServiceUnavailable},
	{tree.ErrIndexUnavailable, http.StatusServiceUnavailable},
	{tree.ErrTreeBusy, http.StatusServiceUnavailable},
	{tree.ErrPartialDeleteFailure, http.StatusInternalServerError},
	{tree.ErrOrphanNode, http.StatusInternalServerError},
	{tree.ErrCycleDetected, http.StatusInternalServerError},
	{accounts.ErrEmailTaken, http.StatusConflict},
	{accounts.ErrMissingFields, http.StatusBadRequest},
	{accounts.ErrInvalidCredentials, http.StatusUnauthorized},
}

// writeError answers with the status of the first matching error kind. The
// body carries the kind's message only, never the wrapped cause.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			if e.status >= http.StatusInternalServerError {
				s.logger.Error("Request failed", zap.Error(err))
			}
			http.Error(w, e.err.Error(), e.status)
			return
		}
	}

	s.logger.Error("Unclassified error", zap.Error(err))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
