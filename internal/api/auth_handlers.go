package api

import (
	"encoding/json"
	"filezone/internal/accounts"
	"filezone/internal/models"
	"net/http"
)

type SignUpRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Fullname string `json:"fullname" example:"Alice Liddell"`
	Password string `json:"password" example:"password123"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"password123"`
}

type SignUpResponse struct {
	User    *models.User `json:"user"`
	Message string       `json:"message"`
}

// @Summary      Registers a user
// @Description  Creates the account and its root directory, named after the user's full name.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        signUpRequest  body      SignUpRequest  true  "New account"
// @Success      201            {object}  SignUpResponse
// @Failure      400            {string}  string "Missing fields"
// @Failure      409            {string}  string "Email already taken"
// @Failure      503            {string}  string "Storage unavailable"
// @Router       /auth/sign-up [post]
func (s *Server) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := s.accounts.SignUp(r.Context(), accounts.SignUpParams{
		Email:    req.Email,
		Fullname: req.Fullname,
		Password: req.Password,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SignUpResponse{User: user, Message: "User created successfully"})
}

// @Summary      Logs a user in
// @Description  Authenticates a user and returns an access token together with the user's whole tree.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        loginRequest   body      LoginRequest  true  "Login Credentials"
// @Success      200            {object}  accounts.LoginResult
// @Failure      400            {string}  string "Invalid request body"
// @Failure      401            {string}  string "Email or password not valid"
// @Failure      500            {string}  string "Internal Server Error"
// @Router       /auth/login [post]
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
