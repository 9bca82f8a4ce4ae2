// Package habits implements habit CRUD, reward validation and access rules.
package habits

import (
	"context"
	"errors"
	"fmt"

	"github.com/jimdaga/habit-tracker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobSyncer keeps a habit's reminder job in step with the habit.
type JobSyncer interface {
	Reconcile(tx *gorm.DB, habit *models.Habit, owner *models.User) error
	Remove(tx *gorm.DB, habit *models.Habit) error
}

// Service runs habit operations, each in a single transaction.
type Service struct {
	db   *gorm.DB
	jobs JobSyncer
}

func NewService(db *gorm.DB, jobs JobSyncer) *Service {
	return &Service{db: db, jobs: jobs}
}

// Create validates and stores a new habit owned by owner, together with its
// moment and, for a useful habit, its reminder job.
func (s *Service) Create(ctx context.Context, owner *models.User, in HabitInput) (*models.Habit, error) {
	if err := in.requireComplete(); err != nil {
		return nil, err
	}

	habit := newHabit(owner.ID)
	mergeHabit(habit, in)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := validateInTx(tx, habit, owner.ID); err != nil {
			return err
		}

		if err := tx.Create(&habit.Moment).Error; err != nil {
			return fmt.Errorf("failed to create moment: %w", err)
		}
		habit.MomentID = habit.Moment.ID

		if err := tx.Omit(clause.Associations).Create(habit).Error; err != nil {
			return fmt.Errorf("failed to create habit: %w", err)
		}

		return s.jobs.Reconcile(tx, habit, owner)
	})
	if err != nil {
		return nil, err
	}
	return habit, nil
}

// Update merges in onto the stored habit and its moment. Without partial,
// action and moment.time must be present. Only the owner may update.
func (s *Service) Update(ctx context.Context, requester *models.User, id uint, in HabitInput, partial bool) (*models.Habit, error) {
	var habit models.Habit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadHabit(tx, id, &habit); err != nil {
			return err
		}
		if err := CanEdit(requester.ID, &habit); err != nil {
			return err
		}
		if !partial {
			if err := in.requireComplete(); err != nil {
				return err
			}
		}

		mergeHabit(&habit, in)
		if err := validateInTx(tx, &habit, requester.ID); err != nil {
			return err
		}
		if err := checkDependents(tx, &habit); err != nil {
			return err
		}

		if err := tx.Save(&habit.Moment).Error; err != nil {
			return fmt.Errorf("failed to update moment: %w", err)
		}
		if err := tx.Omit(clause.Associations).Save(&habit).Error; err != nil {
			return fmt.Errorf("failed to update habit: %w", err)
		}

		return s.jobs.Reconcile(tx, &habit, requester)
	})
	if err != nil {
		return nil, err
	}
	return &habit, nil
}

// Get returns a habit the requester may view.
func (s *Service) Get(ctx context.Context, requesterID, id uint) (*models.Habit, error) {
	var habit models.Habit
	if err := loadHabit(s.db.WithContext(ctx), id, &habit); err != nil {
		return nil, err
	}
	if err := CanView(requesterID, &habit); err != nil {
		return nil, err
	}
	return &habit, nil
}

// Delete removes a habit owned by the requester. Habits rewarded by it lose
// the link; its reminder job and moment go with it.
func (s *Service) Delete(ctx context.Context, requesterID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var habit models.Habit
		if err := loadHabit(tx, id, &habit); err != nil {
			return err
		}
		if err := CanEdit(requesterID, &habit); err != nil {
			return err
		}

		if err := tx.Model(&models.Habit{}).Where("related_habit_id = ?", habit.ID).
			Update("related_habit_id", nil).Error; err != nil {
			return fmt.Errorf("failed to unlink rewarded habits: %w", err)
		}
		if err := s.jobs.Remove(tx, &habit); err != nil {
			return err
		}
		if err := tx.Delete(&models.Moment{}, habit.MomentID).Error; err != nil {
			return fmt.Errorf("failed to delete moment: %w", err)
		}
		if err := tx.Delete(&models.Habit{}, habit.ID).Error; err != nil {
			return fmt.Errorf("failed to delete habit: %w", err)
		}
		return nil
	})
}

// ListMine pages through the requester's own habits.
func (s *Service) ListMine(ctx context.Context, requesterID uint, q ListQuery) ([]models.Habit, int64, error) {
	base := s.db.WithContext(ctx).Where("habits.owner_id = ?", requesterID)
	return s.list(base, q)
}

// ListPublic pages through every public habit.
func (s *Service) ListPublic(ctx context.Context, q ListQuery) ([]models.Habit, int64, error) {
	base := s.db.WithContext(ctx).Where("habits.is_public = ?", true)
	return s.list(base, q)
}

func (s *Service) list(base *gorm.DB, q ListQuery) ([]models.Habit, int64, error) {
	query := q.apply(base.Model(&models.Habit{}).Joins("JOIN moments ON moments.id = habits.moment_id"))

	var count int64
	if err := query.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count habits: %w", err)
	}
	if q.Page > 1 && int64(q.Offset()) >= count {
		return nil, count, errInvalidPage
	}

	habits := make([]models.Habit, 0, q.PageSize)
	err := query.Session(&gorm.Session{}).
		Select("habits.*").
		Preload("Moment").
		Order(q.orderClause()).
		Limit(q.PageSize).
		Offset(q.Offset()).
		Find(&habits).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list habits: %w", err)
	}
	return habits, count, nil
}

func loadHabit(db *gorm.DB, id uint, habit *models.Habit) error {
	if err := db.Preload("Moment").First(habit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load habit: %w", err)
	}
	return nil
}

// validateInTx resolves the related habit and runs Validate. A habit that
// names itself is checked against its proposed state, not the stored row.
func validateInTx(tx *gorm.DB, habit *models.Habit, requesterID uint) error {
	var related *models.Habit
	switch {
	case habit.RelatedHabitID == nil:
	case habit.ID != 0 && *habit.RelatedHabitID == habit.ID:
		related = habit
	default:
		var target models.Habit
		if err := tx.First(&target, *habit.RelatedHabitID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return reject(ReasonRelatedHabitNotFound, "related habit %d does not exist", *habit.RelatedHabitID)
			}
			return fmt.Errorf("failed to load related habit: %w", err)
		}
		related = &target
	}
	return Validate(habit, related, requesterID)
}

// checkDependents keeps habits that use this one as their reward valid:
// a reward must stay pleasant, and stay public while other users use it.
func checkDependents(tx *gorm.DB, habit *models.Habit) error {
	if habit.IsPleasant && habit.IsPublic {
		return nil
	}
	query := tx.Model(&models.Habit{}).Where("related_habit_id = ? AND id <> ?", habit.ID, habit.ID)
	if habit.IsPleasant {
		query = query.Where("owner_id <> ?", habit.OwnerID)
	}
	var n int64
	if err := query.Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check dependent habits: %w", err)
	}
	if n == 0 {
		return nil
	}
	if !habit.IsPleasant {
		return reject(ReasonRewardInUse, "habit %d is the reward of %d other habit(s) and must stay pleasant", habit.ID, n)
	}
	return reject(ReasonRewardInUse, "habit %d is the reward of %d habit(s) of other users and must stay public", habit.ID, n)
}
