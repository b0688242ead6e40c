package handler

import (
	"errors"
	"net/http"

	"github.com/filegrid/filegrid/internal/api/response"
	"github.com/filegrid/filegrid/internal/file"
	"github.com/filegrid/filegrid/internal/folder"
	"github.com/filegrid/filegrid/internal/gdpr"
	"github.com/filegrid/filegrid/internal/identity"
	"github.com/filegrid/filegrid/internal/retention"
	"github.com/filegrid/filegrid/internal/share"
	"github.com/filegrid/filegrid/internal/storage"
)

// writeDomainError maps service-layer errors onto problem responses.
// Cross-tenant reads surface as the same 404 a genuinely missing entity
// produces, so existence never leaks across companies.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var blocked *gdpr.BlockedError

	switch {
	case errors.As(err, &blocked):
		response.Forbidden(w, r, blocked.Message)

	case errors.Is(err, file.ErrFileNotFound),
		errors.Is(err, folder.ErrFolderNotFound),
		errors.Is(err, folder.ErrPermissionNotFound),
		errors.Is(err, retention.ErrPolicyNotFound),
		errors.Is(err, retention.ErrRetentionNotFound),
		errors.Is(err, share.ErrShareNotFound),
		errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, identity.ErrAPIKeyNotFound):
		response.NotFound(w, r, err.Error())

	case errors.Is(err, file.ErrForbidden),
		errors.Is(err, folder.ErrForbidden),
		errors.Is(err, retention.ErrForbidden),
		errors.Is(err, share.ErrForbidden),
		errors.Is(err, identity.ErrForbidden),
		errors.Is(err, share.ErrSharesDisabled):
		response.Forbidden(w, r, err.Error())

	case errors.Is(err, folder.ErrNotEmpty),
		errors.Is(err, retention.ErrPolicyInUse),
		errors.Is(err, file.ErrSameFolder),
		errors.Is(err, share.ErrScanRequired):
		response.Conflict(w, r, err.Error())

	case errors.Is(err, share.ErrShareGone),
		errors.Is(err, share.ErrFileUnavailable),
		errors.Is(err, file.ErrUnavailable):
		response.Gone(w, r, err.Error())

	case errors.Is(err, share.ErrInvalidOTP),
		errors.Is(err, identity.ErrInvalidCredential),
		errors.Is(err, identity.ErrInactiveUser):
		response.Unauthorized(w, r, err.Error())

	case errors.Is(err, retention.ErrFileNotActive),
		errors.Is(err, retention.ErrLegalHoldNotAllowed),
		errors.Is(err, folder.ErrInvalidSubject):
		response.BadRequest(w, r, err.Error(), nil)

	case errors.Is(err, storage.ErrUnavailable):
		response.ServiceUnavailable(w, r, "storage backend unavailable")

	default:
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
