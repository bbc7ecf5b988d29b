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

// CommentHandler provides HTTP handlers for comments.
type CommentHandler struct {
	commentService *services.CommentService
	logger         *slog.Logger
}

// NewCommentHandler constructs a handler with the provided dependencies.
func NewCommentHandler(commentService *services.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		logger:         logger,
	}
}

// CommentRouter registers comment routes on the given router.
func CommentRouter(
	r chi.Router,
	commentService *services.CommentService,
	logger *slog.Logger,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewCommentHandler(commentService, logger)

	r.Get("/", handler.ListComments)
	if authMiddleware != nil {
		r.With(authMiddleware).Post("/", handler.CreateComment)
	} else {
		r.Post("/", handler.CreateComment)
	}
	r.Route("/{commentID}", func(r chi.Router) {
		r.Get("/", handler.GetComment)
		if authMiddleware != nil {
			r.With(authMiddleware).Put("/", handler.UpdateComment)
			r.With(authMiddleware).Patch("/", handler.PatchComment)
			r.With(authMiddleware).Delete("/", handler.DeleteComment)
		} else {
			r.Put("/", handler.UpdateComment)
			r.Patch("/", handler.PatchComment)
			r.Delete("/", handler.DeleteComment)
		}
	})
}

func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	page, perPage, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comments, err := h.commentService.List(r.Context(), page, perPage)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list comments")
		return
	}

	writeJSON(w, http.StatusOK, comments)
}

func (h *CommentHandler) GetComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "commentID"), "comment id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := h.commentService.Find(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch comment")
		return
	}
	if comment == nil {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}

	writeJSON(w, http.StatusOK, comment)
}

func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var in types.CommentCreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	writeResult(w, h.logger, h.commentService.Create(r.Context(), in, true), http.StatusCreated)
}

func (h *CommentHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "commentID"), "comment id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var in types.CommentUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	writeResult(w, h.logger, h.commentService.Update(r.Context(), id, in, true), http.StatusOK)
}

func (h *CommentHandler) PatchComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "commentID"), "comment id")
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
	result := h.commentService.UpdateWith(r.Context(), id, func(dto *types.CommentUpdateInput) bool {
		patchErrs = patch.Apply(doc, dto, "commentId")
		return len(patchErrs) == 0
	}, false)

	if result.Kind == services.OperationExternalError && len(patchErrs) > 0 {
		writeFieldErrors(w, http.StatusBadRequest, patchErrs)
		return
	}
	writeResult(w, h.logger, result, http.StatusOK)
}

func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "commentID"), "comment id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, deleteErr := h.commentService.Delete(r.Context(), id)
	writeDeleteResult(w, result, deleteErr, "comment not found")
}
