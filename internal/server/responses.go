package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/errors"
)

// writeJSON writes v with the given status
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps err onto an ErrorResponse. Errors outside the AppError
// taxonomy are reported as internal without leaking their text.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.NewInternalError("Internal server error")
	}
	status := errors.StatusCode(appErr)

	entry := s.logger.WithFields(logrus.Fields{
		"path":       r.URL.Path,
		"request_id": requestIDFrom(r),
		"status":     status,
		"code":       appErr.Code,
	})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("Request failed")
	} else {
		entry.WithError(err).Debug("Request rejected")
	}

	s.writeJSON(w, status, errors.ErrorResponse{
		Error:     appErr,
		RequestID: requestIDFrom(r),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
	})
}

// decodeJSON decodes the request body into v. An empty body leaves v zero.
func decodeJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || err == io.EOF {
		return nil
	}

	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return requestTooLarge(maxErr.Limit)
	}

	return errors.InvalidArgument(errors.ErrInvalidInputData, errors.CodeInvalidInput,
		"malformed JSON body").WithDetails(err.Error())
}

func badQuery(param, value string) error {
	return errors.InvalidArgument(errors.ErrInvalidInputData, errors.CodeInvalidInput,
		fmt.Sprintf("invalid %s query parameter %q", param, value))
}
