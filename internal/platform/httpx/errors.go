package httpx

import (
	"errors"
	"net/http"

	"github.com/portcullis-iam/portcullis/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Authorization denials are not errors and never pass through here.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrAlreadyExists):
		Problem(w, http.StatusConflict, "Already Exists", err.Error())
	case errors.Is(err, shared.ErrUnknownPermittableGroup):
		Problem(w, http.StatusUnprocessableEntity, "Unknown Permittable Group", err.Error())
	case errors.Is(err, shared.ErrPermissionNotExposed):
		Problem(w, http.StatusConflict, "Permission Not Exposed", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrStorageUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Storage Unavailable", "temporary storage fault, retry the request")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
