package domain

import "time"

// Review Model: one per (author, title) pair, enforced by a composite
// unique index so concurrent duplicate creates fail at the store.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Score     int       `gorm:"not null" json:"score"` // 1..10 inclusive
	AuthorID  uint      `gorm:"uniqueIndex:idx_review_author_title;not null" json:"-"`
	Author    User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	TitleID   uint      `gorm:"uniqueIndex:idx_review_author_title;not null" json:"-"`
	Comments  []Comment `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"pub_date"`
}

// Comment Model: unbounded per review, cascade-deleted with it.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	AuthorID  uint      `gorm:"not null" json:"-"`
	Author    User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ReviewID  uint      `gorm:"index;not null" json:"-"`
	CreatedAt time.Time `gorm:"index" json:"pub_date"`
}
