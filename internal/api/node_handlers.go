package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CreateFolderRequest struct {
	Name string `json:"name" example:"docs"`
}

// @Summary      Get caller's tree
// @Description  Returns the authenticated user's root directory with every descendant. Directory sizes are aggregated.
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.TreeView
// @Failure      401  {string}  string "Unauthorized"
// @Failure      404  {string}  string "Root not found"
// @Router       /tree [get]
func (s *Server) GetTreeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	root, err := s.tree.Root(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	view, err := s.tree.GetSubtree(r.Context(), root.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

// @Summary      Get subtree
// @Description  Returns the node and all of its descendants.
// @Tags         nodes
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId  path      string  true  "Node ID"
// @Success      200     {object}  models.TreeView
// @Failure      401     {string}  string "Unauthorized"
// @Failure      404     {string}  string "Node not found"
// @Router       /nodes/{nodeId} [get]
func (s *Server) GetSubtreeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	if _, err := s.tree.Authorize(r.Context(), claims.UserID, nodeID); err != nil {
		s.writeError(w, err)
		return
	}

	view, err := s.tree.GetSubtree(r.Context(), nodeID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

// @Summary      Create folder
// @Description  Creates an empty directory under the given parent directory.
// @Tags         nodes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId   path      string               true  "Parent node ID"
// @Param        request  body      CreateFolderRequest  true  "Folder name"
// @Success      201      {object}  models.Node
// @Failure      400      {string}  string "Invalid name or parent is not a directory"
// @Failure      404      {string}  string "Parent not found"
// @Failure      409      {string}  string "Name already used in this folder"
// @Failure      503      {string}  string "Storage unavailable"
// @Router       /nodes/{nodeId}/folders [post]
func (s *Server) CreateFolderHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	parentID := chi.URLParam(r, "nodeId")

	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if _, err := s.tree.Authorize(r.Context(), claims.UserID, parentID); err != nil {
		s.writeError(w, err)
		return
	}

	node, err := s.tree.CreateContainer(r.Context(), parentID, strings.TrimSpace(req.Name))
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(node)
}

// @Summary      Upload file
// @Description  Stores a file under the given parent directory. The name defaults to the uploaded file name and can be overridden with the "name" form field.
// @Tags         nodes
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        nodeId  path      string  true   "Parent node ID"
// @Param        file    formData  file    true   "File content"
// @Param        name    formData  string  false  "File name"
// @Success      201     {object}  models.Node
// @Failure      400     {string}  string "Invalid upload or parent is not a directory"
// @Failure      404     {string}  string "Parent not found"
// @Failure      409     {string}  string "Name already used in this folder"
// @Failure      413     {string}  string "File too large"
// @Failure      503     {string}  string "Storage unavailable"
// @Router       /nodes/{nodeId}/files [post]
func (s *Server) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	parentID := chi.URLParam(r, "nodeId")

	if r.ContentLength > s.maxUploadSize() {
		http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize())

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Error parsing multipart form", http.StatusBadRequest)
		return
	}

	file, handler, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error retrieving the file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = handler.Filename
	}

	if _, err := s.tree.Authorize(r.Context(), claims.UserID, parentID); err != nil {
		s.writeError(w, err)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading the file", http.StatusBadRequest)
		return
	}

	node, err := s.tree.CreateLeaf(r.Context(), parentID, name, content)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(node)
}

func (s *Server) maxUploadSize() int64 {
	if s.config.HTTP.MaxUploadSize > 0 {
		return s.config.HTTP.MaxUploadSize
	}
	return 1 << 30
}

// @Summary      Download file
// @Tags         nodes
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        nodeId  path      string  true  "Node ID"
// @Success      200     {file}    file
// @Failure      400     {string}  string "Node is a directory"
// @Failure      404     {string}  string "File not found"
// @Failure      503     {string}  string "Storage unavailable"
// @Router       /nodes/{nodeId}/content [get]
func (s *Server) DownloadFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	if _, err := s.tree.Authorize(r.Context(), claims.UserID, nodeID); err != nil {
		s.writeError(w, err)
		return
	}

	fileStream, node, err := s.tree.OpenContent(r.Context(), nodeID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer fileStream.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": node.Name}))
	w.Header().Set("Content-Type", "application/octet-stream")
	if node.SizeBytes != nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", *node.SizeBytes))
	}

	if _, err := io.Copy(w, fileStream); err != nil {
		s.logger.Warn("Download interrupted", zap.String("node_id", nodeID), zap.Error(err))
	}
}

// @Summary      Delete node
// @Description  Deletes a file, or a directory with everything below it. Root directories cannot be deleted.
// @Tags         nodes
// @Security     BearerAuth
// @Param        nodeId  path      string  true  "Node ID"
// @Success      204     {null}    nil "No Content"
// @Failure      400     {string}  string "Root directory cannot be deleted"
// @Failure      404     {string}  string "Node not found"
// @Failure      500     {string}  string "Physical delete failed"
// @Router       /nodes/{nodeId} [delete]
func (s *Server) DeleteNodeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	nodeID := chi.URLParam(r, "nodeId")

	if _, err := s.tree.Authorize(r.Context(), claims.UserID, nodeID); err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.tree.Delete(r.Context(), nodeID); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
