package database

import (
	"fmt"
	"log/slog"

	"github.com/jimdaga/habit-tracker/internal/crypto"
	"github.com/jimdaga/habit-tracker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	devUserEmail    = "dev@habits.local"
	devUserPassword = "dev-password"
)

// JobReconciler keeps a habit's reminder job in sync with the habit.
type JobReconciler interface {
	Reconcile(tx *gorm.DB, habit *models.Habit, owner *models.User) error
}

// SeedDevData populates the database with a development user and two habits.
// Idempotent: skips if the dev user already exists.
func SeedDevData(db *gorm.DB, reconciler JobReconciler) error {
	var existing models.User
	if err := db.Where("email = ?", devUserEmail).First(&existing).Error; err == nil {
		slog.Info("Seed data already exists, skipping")
		return nil
	}

	hash, err := crypto.HashPassword(devUserPassword)
	if err != nil {
		return err
	}

	telegramID := "100000001"
	user := models.User{
		Email:      devUserEmail,
		Username:   "dev",
		Password:   hash,
		TelegramID: &telegramID,
		IsActive:   true,
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		afterLunch := "after lunch"
		pleasant := models.Habit{
			Action:      "drink a glass of fresh juice",
			Moment:      models.Moment{Title: &afterLunch, Time: models.MustTimeOfDay("13:00:00")},
			Periodicity: models.DefaultPeriodicity,
			Duration:    models.DefaultDuration,
			IsPleasant:  true,
			OwnerID:     user.ID,
			IsPublic:    true,
		}
		if err := createSeedHabit(tx, reconciler, &pleasant, &user); err != nil {
			return err
		}

		park := "in the park"
		useful := models.Habit{
			Action:         "go for a run",
			Place:          &park,
			Moment:         models.Moment{Time: models.MustTimeOfDay("07:00:00")},
			Periodicity:    models.DefaultPeriodicity,
			Duration:       models.MaxDuration,
			RelatedHabitID: &pleasant.ID,
			OwnerID:        user.ID,
		}
		if err := createSeedHabit(tx, reconciler, &useful, &user); err != nil {
			return err
		}

		slog.Info("Seeded dev data: 1 user, 2 habits", "email", devUserEmail)
		return nil
	})
}

func createSeedHabit(tx *gorm.DB, reconciler JobReconciler, habit *models.Habit, owner *models.User) error {
	if err := tx.Create(&habit.Moment).Error; err != nil {
		return fmt.Errorf("failed to seed moment: %w", err)
	}
	habit.MomentID = habit.Moment.ID
	if err := tx.Omit(clause.Associations).Create(habit).Error; err != nil {
		return fmt.Errorf("failed to seed habit: %w", err)
	}
	if reconciler == nil {
		return nil
	}
	return reconciler.Reconcile(tx, habit, owner)
}
