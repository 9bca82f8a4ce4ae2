package habits

import (
	"encoding/json"
	"strings"

	"github.com/jimdaga/habit-tracker/internal/models"
)

// Nullable tells apart a field that was absent, explicitly null, or set.
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		var zero T
		n.Valid, n.Value = false, zero
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

// Ptr returns the value as a pointer, nil when null or absent.
func (n Nullable[T]) Ptr() *T {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// MomentInput is the writable part of a moment.
type MomentInput struct {
	Title Nullable[string]  `json:"title"`
	Time  *models.TimeOfDay `json:"time"`
}

// HabitInput is the writable part of a habit. owner is never read from input.
type HabitInput struct {
	Moment       *MomentInput     `json:"moment"`
	Action       *string          `json:"action"`
	Place        Nullable[string] `json:"place"`
	Periodicity  *int             `json:"periodicity"`
	Duration     *int             `json:"duration"`
	IsPleasant   *bool            `json:"is_pleasant"`
	RelatedHabit Nullable[uint]   `json:"related_habit"`
	Award        Nullable[string] `json:"award"`
	IsPublic     *bool            `json:"is_public"`
}

// requireComplete rejects input lacking the fields a full write needs.
func (in HabitInput) requireComplete() error {
	if in.Action == nil || strings.TrimSpace(*in.Action) == "" {
		return reject(ReasonMissingField, "action is required")
	}
	if in.Moment == nil || in.Moment.Time == nil {
		return reject(ReasonMissingField, "moment.time is required")
	}
	return nil
}

// newHabit returns a habit with the column defaults applied.
func newHabit(ownerID uint) *models.Habit {
	return &models.Habit{
		OwnerID:     ownerID,
		Periodicity: models.DefaultPeriodicity,
		Duration:    models.DefaultDuration,
	}
}

func mergeMoment(dst *models.Moment, in *MomentInput) {
	if in == nil {
		return
	}
	if in.Title.Set {
		dst.Title = blankToNil(in.Title.Ptr())
	}
	if in.Time != nil {
		dst.Time = *in.Time
	}
}

// mergeHabit overlays the fields present in in onto dst, including its moment.
func mergeHabit(dst *models.Habit, in HabitInput) {
	mergeMoment(&dst.Moment, in.Moment)

	if in.Action != nil {
		dst.Action = strings.TrimSpace(*in.Action)
	}
	if in.Place.Set {
		dst.Place = blankToNil(in.Place.Ptr())
	}
	if in.Periodicity != nil {
		dst.Periodicity = *in.Periodicity
	}
	if in.Duration != nil {
		dst.Duration = *in.Duration
	}
	if in.IsPleasant != nil {
		dst.IsPleasant = *in.IsPleasant
	}
	if in.RelatedHabit.Set {
		dst.RelatedHabitID = in.RelatedHabit.Ptr()
		dst.RelatedHabit = nil
	}
	if in.Award.Set {
		dst.Award = blankToNil(in.Award.Ptr())
	}
	if in.IsPublic != nil {
		dst.IsPublic = *in.IsPublic
	}
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
