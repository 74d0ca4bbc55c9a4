package accountstore

import coreerr "github.com/abcore/core/pkg/errors"

// Re-exported for callers that only import accountstore.
var (
	ErrAccountDoesNotExist  = coreerr.ErrAccountDoesNotExist
	ErrAccountAlreadyExists = coreerr.ErrAccountAlreadyExists
	ErrNoAvailAccountSpace  = coreerr.ErrNoAvailAccountSpace
	ErrFileDoesNotExist     = coreerr.ErrFileDoesNotExist
)

func coreFileReadErr() error  { return coreerr.ErrFileReadError }
func coreFileWriteErr() error { return coreerr.ErrFileWriteError }
func coreJSONErr() error      { return coreerr.ErrJSONError }
