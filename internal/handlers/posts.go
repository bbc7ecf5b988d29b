package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/microblog/apiserver/internal/patch"
	"github.com/microblog/apiserver/internal/services"
	"github.com/microblog/apiserver/types"
)

// PostHandler provides HTTP handlers for posts.
type PostHandler struct {
	postService *services.PostService
	logger      *slog.Logger
}

// NewPostHandler constructs a handler with the provided dependencies.
func NewPostHandler(postService *services.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{
		postService: postService,
		logger:      logger,
	}
}

// PostRouter registers post routes on the given router.
func PostRouter(
	r chi.Router,
	postService *services.PostService,
	logger *slog.Logger,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewPostHandler(postService, logger)

	r.Get("/", handler.ListPosts)
	if authMiddleware != nil {
		r.With(authMiddleware).Post("/", handler.CreatePost)
	} else {
		r.Post("/", handler.CreatePost)
	}
	r.Route("/{postID}", func(r chi.Router) {
		r.Get("/", handler.GetPost)
		if authMiddleware != nil {
			r.With(authMiddleware).Put("/", handler.UpdatePost)
			r.With(authMiddleware).Patch("/", handler.PatchPost)
			r.With(authMiddleware).Delete("/", handler.DeletePost)
		} else {
			r.Put("/", handler.UpdatePost)
			r.Patch("/", handler.PatchPost)
			r.Delete("/", handler.DeletePost)
		}
	})
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	posts, err := h.postService.ListWithAuthors(r.Context(), page, perPage)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "postID"), "post id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.postService.FindDetail(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch post")
		return
	}
	if post == nil {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var in types.PostCreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	writeResult(w, h.logger, h.postService.Create(r.Context(), in, true), http.StatusCreated)
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "postID"), "post id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var in types.PostUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	writeResult(w, h.logger, h.postService.Update(r.Context(), id, in, true), http.StatusOK)
}

func (h *PostHandler) PatchPost(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "postID"), "post id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var doc patch.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	var patchErrs map[string]string
	result := h.postService.UpdateWith(r.Context(), id, func(dto *types.PostUpdateInput) bool {
		patchErrs = patch.Apply(doc, dto, "postId")
		return len(patchErrs) == 0
	}, false)

	if result.Kind == services.OperationExternalError && len(patchErrs) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, patchErrs)
		return
	}
	writeResult(w, h.logger, result, http.StatusOK)
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "postID"), "post id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, deleteErr := h.postService.Delete(r.Context(), id)
	writeDeleteResult(w, result, deleteErr, "post not found")
}
