package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/microblog/apiserver/internal/patch"
	"github.com/microblog/apiserver/internal/services"
	"github.com/microblog/apiserver/internal/storage"
	"github.com/microblog/apiserver/types"
)

const maxAvatarBytes = 8 << 20

// UserHandler provides HTTP handlers for user accounts.
type UserHandler struct {
	userService *services.UserService
	avatars     *storage.Avatars
	logger      *slog.Logger
}

// NewUserHandler constructs a handler with the provided dependencies.
// The avatar store may be nil, disabling the avatar endpoints.
func NewUserHandler(userService *services.UserService, avatars *storage.Avatars, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		avatars:     avatars,
		logger:      logger,
	}
}

// UserRouter registers user routes on the given router.
func UserRouter(
	r chi.Router,
	userService *services.UserService,
	avatars *storage.Avatars,
	logger *slog.Logger,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewUserHandler(userService, avatars, logger)

	r.Get("/", handler.ListUsers)
	r.Post("/", handler.CreateUser)
	r.Route("/{username}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		if authMiddleware != nil {
			r.With(authMiddleware).Put("/", handler.UpdateUser)
			r.With(authMiddleware).Patch("/", handler.PatchUser)
			r.With(authMiddleware).Delete("/", handler.DeleteUser)
			r.With(authMiddleware).Put("/avatar", handler.PutAvatar)
		} else {
			r.Put("/", handler.UpdateUser)
			r.Patch("/", handler.PatchUser)
			r.Delete("/", handler.DeleteUser)
			r.Put("/avatar", handler.PutAvatar)
		}
		r.Get("/avatar", handler.GetAvatar)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, err := h.userService.List(r.Context(), page, perPage)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.findUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in types.UserCreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	writeResult(w, h.logger, h.userService.Create(r.Context(), in, true), http.StatusCreated)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.findUser(w, r)
	if !ok {
		return
	}

	var in types.UserUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	writeResult(w, h.logger, h.userService.Update(r.Context(), user.UserID, in, true), http.StatusOK)
}

func (h *UserHandler) PatchUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.findUser(w, r)
	if !ok {
		return
	}

	var doc patch.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	var patchErrs map[string]string
	result := h.userService.UpdateUserWith(r.Context(), user.UserID, func(dto *types.UserUpdateInput) bool {
		patchErrs = patch.Apply(doc, dto, "userId")
		return len(patchErrs) == 0
	}, false)

	if result.Kind == services.OperationExternalError && len(patchErrs) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, patchErrs)
		return
	}
	writeResult(w, h.logger, result, http.StatusOK)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	result, _, err := h.userService.DeleteByUserName(r.Context(), username)
	writeDeleteResult(w, result, err, "user not found")
}

func (h *UserHandler) PutAvatar(w http.ResponseWriter, r *http.Request) {
	if h.avatars == nil {
		writeError(w, http.StatusNotFound, "avatar storage is not configured")
		return
	}

	user, ok := h.findUser(w, r)
	if !ok {
		return
	}

	data, err := readBodyLimited(r.Body, maxAvatarBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "avatar image is required")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	if err := h.avatars.Save(r.Context(), user.UserID, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		h.logger.Error("avatar upload failed", "userId", user.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	if h.avatars == nil {
		writeError(w, http.StatusNotFound, "avatar storage is not configured")
		return
	}

	user, ok := h.findUser(w, r)
	if !ok {
		return
	}

	object, err := h.avatars.Open(r.Context(), user.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "avatar not found")
		return
	}
	defer object.Close()

	if _, err := io.Copy(w, object); err != nil {
		h.logger.Error("avatar download failed", "userId", user.UserID, "error", err)
	}
}

// findUser resolves the {username} route param to a user detail, writing
// the error response itself when resolution fails.
func (h *UserHandler) findUser(w http.ResponseWriter, r *http.Request) (*types.UserDetailOutput, bool) {
	username := strings.TrimSpace(chi.URLParam(r, "username"))
	if username == "" {
		writeError(w, http.StatusBadRequest, "invalid username")
		return nil, false
	}

	user, err := h.userService.FindByUserName(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return nil, false
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return nil, false
	}
	return user, true
}

func readBodyLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
