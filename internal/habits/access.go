package habits

import (
	"errors"

	"github.com/jimdaga/habit-tracker/internal/apierr"
	"github.com/jimdaga/habit-tracker/internal/models"
)

var (
	ErrForbidden = apierr.Forbidden(errors.New("you do not have permission to perform this action"))
	ErrNotFound  = apierr.NotFound(errors.New("habit not found"))
)

// CanEdit allows only the owner to change or delete a habit.
func CanEdit(requesterID uint, h *models.Habit) error {
	if h.OwnerID != requesterID {
		return ErrForbidden
	}
	return nil
}

// CanView allows the owner, or anyone when the habit is public.
func CanView(requesterID uint, h *models.Habit) error {
	if h.OwnerID == requesterID || h.IsPublic {
		return nil
	}
	return ErrForbidden
}
