package models

import (
	"time"

	"github.com/jimdaga/habit-tracker/internal/crypto"
	"gorm.io/gorm"
)

var encryptor *crypto.FieldEncryptor

// InitEncryption initializes the encryptor used for messaging identifiers at rest.
// Without it, identifiers are stored as plain text.
func InitEncryption(encryptionKey string) error {
	var err error
	encryptor, err = crypto.NewFieldEncryptor(encryptionKey)
	return err
}

// ResetEncryption disables at-rest encryption.
func ResetEncryption() {
	encryptor = nil
}

// User is an account that owns habits and receives reminders on Telegram.
// Email is the login identifier.
type User struct {
	ID         uint       `gorm:"primaryKey"`
	Email      string     `gorm:"uniqueIndex;not null"`
	Username   string     `gorm:"uniqueIndex;not null"`
	Password   string     `gorm:"not null"` // bcrypt hash
	Phone      *string    `gorm:"size:20"`
	TelegramID *string    `gorm:"column:telegram_id;type:text"` // stored encrypted
	City       *string    `gorm:"size:60"`
	Avatar     *string    `gorm:"size:255"`
	IsActive   bool       `gorm:"not null"`
	DateJoined time.Time  `gorm:"autoCreateTime"`
	LastLogin  *time.Time
}

// MessagingID returns the Telegram chat id or "" when unset.
func (u *User) MessagingID() string {
	if u == nil || u.TelegramID == nil {
		return ""
	}
	return *u.TelegramID
}

// BeforeSave encrypts the Telegram id before it reaches the database.
func (u *User) BeforeSave(tx *gorm.DB) error {
	return sealString(u.TelegramID)
}

// AfterSave restores the plain Telegram id on the in-memory value.
func (u *User) AfterSave(tx *gorm.DB) error {
	return openString(u.TelegramID)
}

// AfterFind decrypts the Telegram id after loading from the database.
func (u *User) AfterFind(tx *gorm.DB) error {
	return openString(u.TelegramID)
}

func sealString(s *string) error {
	if encryptor == nil || s == nil || *s == "" {
		return nil
	}
	encrypted, err := encryptor.Encrypt(*s)
	if err != nil {
		return err
	}
	*s = encrypted
	return nil
}

func openString(s *string) error {
	if encryptor == nil || s == nil || *s == "" {
		return nil
	}
	decrypted, err := encryptor.Decrypt(*s)
	if err != nil {
		return err
	}
	*s = decrypted
	return nil
}
