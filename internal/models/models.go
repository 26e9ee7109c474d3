package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FullName     string    `gorm:"size:120;not null" json:"full_name"`
	Email        string    `gorm:"size:190;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	ProfilePic   string    `gorm:"size:500" json:"profile_pic"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Message is immutable once created. ID is the tiebreak when two rows carry
// the same created_at.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SenderID   uint      `gorm:"index;not null" json:"sender_id"`
	ReceiverID uint      `gorm:"index;not null" json:"receiver_id"`
	Text       string    `gorm:"type:text" json:"text"`
	ImageURL   string    `gorm:"size:500" json:"image_url"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
