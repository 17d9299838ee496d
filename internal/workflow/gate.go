package workflow

import (
	"fmt"

	apperrors "paperflow_go_backend/internal/errors"
	"paperflow_go_backend/internal/models"
)

// Authorize is the single gate for role checks. Deactivated actors are
// refused before their role is considered.
func Authorize(actor Actor, allowed ...models.UserRole) error {
	if !actor.Active {
		return apperrors.NewForbiddenError("Account is deactivated")
	}
	for _, role := range allowed {
		if actor.Role == role {
			return nil
		}
	}
	return apperrors.NewForbiddenError(fmt.Sprintf("Role %s may not perform this action", actor.Role))
}
