package models

import "time"

// DefaultPurchasedAt is used when a book is saved without a purchase date.
var DefaultPurchasedAt = NewDate(2000, time.January, 1)

// Book is an inventory record. RegisteredBy holds the creating user's email and never changes.
type Book struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title        string    `json:"title" gorm:"type:varchar(255);not null"`
	Author       string    `json:"author" gorm:"type:varchar(255);not null"`
	ISBN         *string   `json:"isbn" gorm:"column:isbn;type:varchar(32)"`
	Location     *string   `json:"location" gorm:"type:varchar(255)"`
	Memo         *string   `json:"memo" gorm:"type:text"`
	PurchasedAt  Date      `json:"purchasedAt" gorm:"not null;index"`
	RegisteredBy string    `json:"registeredBy" gorm:"type:varchar(255);not null;index"`
	User         *User     `json:"-" gorm:"foreignKey:RegisteredBy;references:Email;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Event types published after a book mutation.
const (
	EventBookCreated = "book.created"
	EventBookUpdated = "book.updated"
	EventBookDeleted = "book.deleted"
)

// BookEvent describes a committed change to a book.
type BookEvent struct {
	Type       string    `json:"type"`
	BookID     string    `json:"bookId"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurredAt"`
}
