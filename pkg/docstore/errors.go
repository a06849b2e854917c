package docstore

import (
	"errors"

	pkgerrors "github.com/qualitysquare/fieldops-backend/pkg/errors"
)

// TypedError maps a store error onto the API error taxonomy. The original
// error stays in the chain.
func TypedError(err error, notFoundMessage string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, notFoundMessage)
	case errors.Is(err, ErrPreconditionFailed):
		return pkgerrors.Wrap(pkgerrors.CodePreconditionFailed, err, "record changed, reload and retry")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "document store unavailable")
	}
}
