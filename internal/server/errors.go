package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/at-ishikawa/vocabox/internal/dictionary"
	"github.com/at-ishikawa/vocabox/internal/imagesearch"
	"github.com/at-ishikawa/vocabox/internal/randomword"
	"github.com/at-ishikawa/vocabox/internal/translate"
)

// Error codes of the JSON error envelope.
const (
	CodeValidation          = "validation_error"
	CodeWordExists          = "word_exists"
	CodeNotFound            = "not_found"
	CodeUpstream            = "upstream_error"
	CodeParse               = "parse_error"
	CodeUpstreamTimeout     = "upstream_timeout"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeNotReady            = "not_ready"
	CodeInternal            = "internal_error"
)

// ValidationError is a bad or missing input, including a wrong API key.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return &ValidationError{Message: err.Error()}
	}
	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, fe.Translate(translator))
	}
	return &ValidationError{Message: strings.Join(messages, ", ")}
}

// ErrorBody is the JSON envelope of every failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps err to a status, an error code and the message that is safe
// to show to the caller.
func classify(err error) (int, string, string) {
	var (
		validationErr *ValidationError
		parseErr      *translate.ParseError
		upstreamErr   *translate.UpstreamError
		statusErr     *imagesearch.StatusError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, CodeValidation, validationErr.Message
	case errors.Is(err, dictionary.ErrInvalidRange),
		errors.Is(err, dictionary.ErrInvalidPronunciation),
		errors.Is(err, dictionary.ErrInvalidImage),
		errors.Is(err, dictionary.ErrImageTooLarge):
		return http.StatusBadRequest, CodeValidation, err.Error()
	case errors.Is(err, dictionary.ErrWordExists):
		return http.StatusConflict, CodeWordExists, dictionary.ErrWordExists.Error()
	case errors.Is(err, dictionary.ErrWordNotFound):
		return http.StatusNotFound, CodeNotFound, dictionary.ErrWordNotFound.Error()
	case errors.Is(err, dictionary.ErrEntryNotFound):
		return http.StatusNotFound, CodeNotFound, dictionary.ErrEntryNotFound.Error()
	case errors.Is(err, randomword.ErrWordNotFound):
		return http.StatusNotFound, CodeNotFound, randomword.ErrWordNotFound.Error()
	case errors.Is(err, randomword.ErrEmpty):
		return http.StatusNotFound, CodeNotFound, randomword.ErrEmpty.Error()
	case errors.As(err, &parseErr):
		return http.StatusBadGateway, CodeParse, "unexpected response from the translation site"
	case errors.As(err, &upstreamErr):
		switch upstreamErr.Kind {
		case translate.KindTimeout:
			return http.StatusGatewayTimeout, CodeUpstreamTimeout, "translation site did not answer in time"
		case translate.KindUnavailable:
			return http.StatusServiceUnavailable, CodeUpstreamUnavailable, "translation site is unavailable, try again later"
		default:
			return http.StatusBadGateway, CodeUpstream, "translation failed"
		}
	case errors.As(err, &statusErr):
		return http.StatusBadGateway, CodeUpstream, statusErr.Error()
	case errors.Is(err, imagesearch.ErrNotConfigured):
		return http.StatusServiceUnavailable, CodeUpstreamUnavailable, imagesearch.ErrNotConfigured.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeUpstreamTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, CodeInternal, "internal server error"
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, code, message := classify(err)
	attrs := []any{"method", c.Request.Method, "path", c.FullPath(), "status", status, "error", err}
	switch {
	case status >= http.StatusInternalServerError && code == CodeParse:
		s.logger.Error("upstream protocol changed", attrs...)
	case status >= http.StatusInternalServerError:
		s.logger.Error("request failed", attrs...)
	default:
		s.logger.Debug("request rejected", attrs...)
	}
	c.AbortWithStatusJSON(status, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}
