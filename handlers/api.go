package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/csrf"

	"sitegate/auth"
	"sitegate/crypto"
	"sitegate/i18n"
	"sitegate/models"
)

type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func sendJSONResponse(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func sendError(w http.ResponseWriter, r *http.Request, status int, key string) {
	sendJSONResponse(w, status, APIResponse{Status: "error", Message: i18n.T(i18n.DetectLanguage(r), key)})
}

// APICSRFHandler hands the CSRF token to the static pages' scripts, which
// send it back in the X-CSRF-Token header.
func (h *Handler) APICSRFHandler(w http.ResponseWriter, r *http.Request) {
	token := csrf.Token(r)
	w.Header().Set("X-CSRF-Token", token)
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: map[string]string{"token": token}})
}

type loginResponse struct {
	Role     string `json:"role"`
	Redirect string `json:"redirect"`
}

func (h *Handler) APILoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed")
		return
	}

	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendError(w, r, http.StatusBadRequest, "InvalidRequestBody")
		return
	}
	if input.Username == "" || input.Password == "" {
		sendError(w, r, http.StatusBadRequest, "MissingCredentials")
		return
	}

	c, storage := h.client(r)
	result := c.Login(r.Context(), input.Username, input.Password)
	switch {
	case result.Success:
	case errors.Is(result.Err, auth.ErrCredentialMismatch):
		sendError(w, r, http.StatusUnauthorized, "InvalidCredentials")
		return
	case errors.Is(result.Err, auth.ErrEnvironmentFault):
		sendError(w, r, http.StatusInternalServerError, "HashingUnsupported")
		return
	default:
		sendError(w, r, http.StatusInternalServerError, "LoginFailed")
		return
	}

	if err := storage.Save(w, r); err != nil {
		h.logger().Error(r.Context(), "saving session cookie failed", "error", err)
		sendError(w, r, http.StatusInternalServerError, "LoginFailed")
		return
	}

	sendJSONResponse(w, http.StatusOK, APIResponse{
		Status: "success",
		Data:   loginResponse{Role: result.Role, Redirect: h.pageURL(h.Pages.Home)},
	})
}

func (h *Handler) APILogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed")
		return
	}

	c, storage := h.client(r)
	if err := c.Logout(r.Context()); err != nil {
		h.logger().Error(r.Context(), "clearing session failed", "error", err)
	}
	if err := storage.Save(w, r); err != nil {
		h.logger().Error(r.Context(), "saving session cookie failed", "error", err)
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: map[string]string{"redirect": h.pageURL(h.Pages.Login)}})
}

type meResponse struct {
	UsernameHash string `json:"usernameHash"`
	Role         string `json:"role"`
	IsAdmin      bool   `json:"isAdmin"`
	Page         string `json:"page"`
}

// APIMeHandler reports the current user. The optional "path" query
// parameter names the page the caller is on; "page" echoes the navigation
// entry to highlight for it.

func (h *Handler) APIMeHandler(w http.ResponseWriter, r *http.Request) {
	c, _ := h.client(r)
	user, ok := c.CurrentUser(r.Context())
	if !ok {
		sendError(w, r, http.StatusUnauthorized, "NotAuthenticated")
		return
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{
		Status: "success",
		Data: meResponse{
			UsernameHash: user.UsernameHash,
			Role:         user.Role,
			IsAdmin:      c.IsAdmin(r.Context()),
			Page:         h.Pages.NavPage(r.URL.Query().Get("path")),
		},
	})
}

type hashgenRequest struct {
	Text     string `json:"text"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type hashgenResponse struct {
	Hash   string                `json:"hash,omitempty"`
	Record *models.AccountRecord `json:"record,omitempty"`
}

// APIHashgenHandler backs the public hash generation page: it salts and
// hashes a single text, or a username/password pair into a directory record.
func (h *Handler) APIHashgenHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed")
		return
	}

	var in hashgenRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		sendError(w, r, http.StatusBadRequest, "InvalidRequestBody")
		return
	}

	var out hashgenResponse
	var err error
	switch {
	case in.Username != "" && in.Password != "":
		out.Record, err = h.record(in)
	case in.Text != "":
		out.Hash, err = crypto.SaltedDigest(h.Hasher, in.Text, h.Salt)
	default:
		sendError(w, r, http.StatusBadRequest, "MissingText")
		return
	}
	if err != nil {
		h.logger().Error(r.Context(), "hash generation failed", "error", err)
		sendError(w, r, http.StatusInternalServerError, "HashingUnsupported")
		return
	}

	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: out})
}

func (h *Handler) record(in hashgenRequest) (*models.AccountRecord, error) {
	uh, err := crypto.SaltedDigest(h.Hasher, in.Username, h.Salt)
	if err != nil {
		return nil, err
	}
	ph, err := crypto.SaltedDigest(h.Hasher, in.Password, h.Salt)
	if err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = "user"
	}
	return &models.AccountRecord{UsernameHash: uh, PasswordHash: ph, Role: role}, nil
}
