package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/microblog/apiserver/internal/services"
	"github.com/microblog/apiserver/internal/store"
)

type contextKey string

const contextSubjectKey contextKey = "sub"

const defaultPage = 1

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FieldErrorResponse carries per-field validation messages.
type FieldErrorResponse struct {
	Errors map[string]string `json:"errors"`
}

func userIDFromContext(ctx context.Context) (int, error) {
	value := ctx.Value(contextSubjectKey)
	switch subject := value.(type) {
	case int:
		if subject < 1 {
			return 0, errors.New("invalid subject")
		}
		return subject, nil
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(subject))
		if err != nil || parsed < 1 {
			return 0, errors.New("invalid subject")
		}
		return parsed, nil
	default:
		return 0, errors.New("missing subject")
	}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeFieldErrors(w http.ResponseWriter, status int, errs map[string]string) {
	writeJSON(w, status, FieldErrorResponse{Errors: errs})
}

// writeResult maps a failed operation result onto an HTTP response. On
// success it writes the output with the given status.
func writeResult[T any](w http.ResponseWriter, logger *slog.Logger, result services.OperationResult[T], successStatus int) {
	if result.IsSuccessful() {
		writeJSON(w, successStatus, result.Output)
		return
	}

	if cause := result.Cause(); cause != nil && logger != nil {
		logger.Error("operation failed", "kind", result.Kind.String(), "error", cause)
	}

	switch result.Kind {
	case services.OperationEntityNotFound:
		writeFieldErrors(w, http.StatusNotFound, result.Errors)
	case services.OperationUnprocessableEntity:
		writeFieldErrors(w, http.StatusUnprocessableEntity, result.Errors)
	case services.OperationDatabaseError:
		writeFieldErrors(w, http.StatusInternalServerError, result.Errors)
	case services.OperationExternalError:
		writeError(w, http.StatusBadRequest, "The request could not be applied.")
	default:
		writeFieldErrors(w, http.StatusBadRequest, result.Errors)
	}
}

// writeDeleteResult maps a delete outcome onto an HTTP response.
func writeDeleteResult(w http.ResponseWriter, result store.DeleteResult, err error, notFoundMessage string) {
	switch result {
	case store.DeleteSuccess:
		w.WriteHeader(http.StatusNoContent)
	case store.DeleteNotFound:
		writeError(w, http.StatusNotFound, notFoundMessage)
	default:
		_ = err
		writeError(w, http.StatusInternalServerError, "failed to delete")
	}
}

func parsePagination(r *http.Request) (page, perPage int, err error) {
	page = defaultPage
	perPage = store.DefaultPerPage

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, errors.New("invalid page")
		}
	}

	rawPerPage := strings.TrimSpace(r.URL.Query().Get("per_page"))
	if rawPerPage == "" {
		rawPerPage = strings.TrimSpace(r.URL.Query().Get("limit"))
	}
	if rawPerPage != "" {
		perPage, err = strconv.Atoi(rawPerPage)
		if err != nil || perPage < 1 {
			return 0, 0, errors.New("invalid per_page")
		}
	}

	if perPage > store.MaxPerPage {
		perPage = store.MaxPerPage
	}

	return page, perPage, nil
}

func parseIDParam(raw, what string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id < 1 {
		return 0, errors.New("invalid " + what)
	}
	return id, nil
}
