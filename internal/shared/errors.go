package shared

import "errors"

var (
	// ErrValidation indicates a malformed command payload, rejected before any mutation.
	ErrValidation = errors.New("validation failed")
	// ErrUnknownPermittableGroup indicates a reference to a group absent from the catalog.
	ErrUnknownPermittableGroup = errors.New("unknown permittable group")
	// ErrAlreadyExists indicates the identifier is already taken within the tenant.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrPermissionNotExposed indicates the group is not part of the application's assigned call endpoint set.
	ErrPermissionNotExposed = errors.New("permission not exposed by application")
	// ErrPublishFailed indicates the mutation was applied but the announcement did not go out.
	ErrPublishFailed = errors.New("event publish failed")
	// ErrStorageUnavailable indicates a transient storage fault; the whole command may be retried.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
