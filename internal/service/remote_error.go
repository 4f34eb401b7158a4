package service

import (
	"errors"
	"net/http"

	"github.com/lib/pq"

	"github.com/noah-isme/etp-gateway/pkg/baas"
	appErrors "github.com/noah-isme/etp-gateway/pkg/errors"
)

// remoteError wraps a data-backend failure so the caller sees the backend's
// own message. Client errors reported by the hosted API keep their status.
func remoteError(err error) *appErrors.Error {
	var apiErr *baas.Error
	if errors.As(err, &apiErr) {
		status := appErrors.ErrUpstream.Status
		if apiErr.Status >= http.StatusBadRequest && apiErr.Status < http.StatusInternalServerError {
			status = apiErr.Status
		}
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, status, apiErr.Error())
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, pqErr.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, err.Error())
}
