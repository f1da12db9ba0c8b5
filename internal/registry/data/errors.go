package data

import (
	"errors"

	"github.com/lk2023060901/filestore-backend/internal/pkg/database"
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
)

// translate maps driver errors into the registry's error vocabulary.
// missing is the code for a missing row or a dangling foreign key.
func translate(err error, missing int) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) || biz.IsUniqueViolation(err, "") {
		return err
	}

	if database.IsRecordNotFoundError(err) {
		return apperrors.New(missing)
	}
	if constraint, ok := database.UniqueViolation(err); ok {
		return biz.NewUniqueViolation(constraint, err)
	}
	if database.IsForeignKeyViolation(err) {
		return apperrors.Wrap(err, missing)
	}
	if database.IsUnavailableError(err) {
		return apperrors.NewStoreUnavailableError(err)
	}
	return apperrors.Wrap(err, apperrors.ErrInternalServer)
}

// affected turns a zero-row write into the not-found code
func affected(rows int64, err error, missing int) error {
	if err != nil {
		return translate(err, missing)
	}
	if rows == 0 {
		return apperrors.New(missing)
	}
	return nil
}
