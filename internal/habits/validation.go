package habits

import (
	"fmt"
	"net/http"

	"github.com/jimdaga/habit-tracker/internal/models"
)

// Reason identifies why a proposed habit was rejected. It is returned to
// clients as the error code.
type Reason string

const (
	ReasonInvalidReward        Reason = "InvalidReward"
	ReasonMultipleRewards      Reason = "MultipleRewards"
	ReasonRewardNotPleasant    Reason = "RewardNotPleasant"
	ReasonRewardNotAccessible  Reason = "RewardNotAccessible"
	ReasonOutOfRange           Reason = "OutOfRange"
	ReasonMissingField         Reason = "MissingField"
	ReasonRelatedHabitNotFound Reason = "RelatedHabitNotFound"
	ReasonRewardInUse          Reason = "RewardInUse"
)

// ValidationError rejects a proposed habit state.
type ValidationError struct {
	Reason  Reason
	Message string
}

func (e *ValidationError) Error() string     { return e.Message }
func (e *ValidationError) HTTPStatus() int   { return http.StatusBadRequest }
func (e *ValidationError) ErrorCode() string { return string(e.Reason) }

func reject(reason Reason, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// CheckRanges bounds periodicity and duration.
func CheckRanges(h *models.Habit) error {
	if h.Periodicity < models.MinPeriodicity || h.Periodicity > models.MaxPeriodicity {
		return reject(ReasonOutOfRange, "periodicity must be between %d and %d days, got %d",
			models.MinPeriodicity, models.MaxPeriodicity, h.Periodicity)
	}
	if h.Duration < models.MinDuration || h.Duration > models.MaxDuration {
		return reject(ReasonOutOfRange, "duration must be between %d and %d seconds, got %d",
			models.MinDuration, models.MaxDuration, h.Duration)
	}
	return nil
}

// CheckPleasantReward rejects a pleasant habit that carries a reward.
func CheckPleasantReward(h *models.Habit) error {
	if h.IsPleasant && (h.HasRelatedHabit() || h.HasAward()) {
		return reject(ReasonInvalidReward, "a pleasant habit cannot have a reward")
	}
	return nil
}

// CheckSingleRewardChannel rejects a useful habit rewarded both ways at once.
func CheckSingleRewardChannel(h *models.Habit) error {
	if !h.IsPleasant && h.HasRelatedHabit() && h.HasAward() {
		return reject(ReasonMultipleRewards, "only one reward is allowed: related_habit or award")
	}
	return nil
}

// CheckRelatedHabit checks the habit used as a reward. related is nil when
// no related habit is set. Visibility is checked before pleasantness.
func CheckRelatedHabit(related *models.Habit, requesterID uint) error {
	if related == nil {
		return nil
	}
	if related.OwnerID != requesterID && !related.IsPublic {
		return reject(ReasonRewardNotAccessible, "only your own or public habits can be used as a reward")
	}
	if !related.IsPleasant {
		return reject(ReasonRewardNotPleasant, "only pleasant habits can be used as a reward")
	}
	return nil
}

// Validate runs every check against the merged proposed state. The first
// failure is returned.
func Validate(h *models.Habit, related *models.Habit, requesterID uint) error {
	checks := []func() error{
		func() error { return CheckRanges(h) },
		func() error { return CheckPleasantReward(h) },
		func() error { return CheckSingleRewardChannel(h) },
		func() error { return CheckRelatedHabit(related, requesterID) },
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}
