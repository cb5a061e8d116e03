package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodrescue/internal/apperr"
)

type errorBody struct {
	Code   apperr.Kind `json:"code"`
	Detail string      `json:"detail"`
}

// envelope: общий формат всех ответов API.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data any, message string) {
	h.writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)

	detail := apperr.MessageOf(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.Error(err),
		)
		detail = "internal error"
	}

	h.writeJSON(w, status, envelope{
		Success: false,
		Message: http.StatusText(status),
		Error:   &errorBody{Code: kind, Detail: detail},
	})
}

func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Debug("unauthenticated request", zap.String("uri", r.RequestURI), zap.Error(err))
	h.writeError(w, r, apperr.Wrap(apperr.KindUnauthenticated, "authenticate", err, "authentication required"))
}

// decodeJSON разбирает тело запроса и проверяет его теги validate.
// Пустое тело допустимо, если optional.
func (h *Handler) decodeJSON(r *http.Request, dst any, optional bool) error {
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Wrap(apperr.KindInvalidInput, "decode request", err, "malformed JSON body")
	}

	if err := h.validate.Struct(dst); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "validate request", err, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
