package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"hrattendance/internal/apperrors"
	"hrattendance/internal/logging"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func statusFor(kind string) int {
	switch kind {
	case "validation":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "authorization":
		return http.StatusForbidden
	case "conflict":
		return http.StatusConflict
	case "transient":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": {"kind", "message"}}.
func writeError(c *gin.Context, err error) {
	kind := apperrors.Kind(err)
	status := statusFor(kind)
	msg := apperrors.Message(err)
	log := logging.FromContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", slog.String("kind", kind), slog.Any("error", err))
		if kind == "internal" {
			msg = "internal error"
		}
	} else {
		log.Debug("request rejected", slog.String("kind", kind), slog.String("message", msg))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Kind: kind, Message: msg}})
}

// bindError converts gin binding failures to validation errors.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.New(apperrors.ErrValidation, "field "+fe.Field()+" failed "+fe.Tag()+" validation")
	}
	return apperrors.Wrap(apperrors.ErrValidation, err, "malformed request")
}
