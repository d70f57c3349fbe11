package domain

// Title Model: a reviewable work with one optional category and at least one genre.
type Title struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:256;not null" json:"name"`
	Year        int       `gorm:"type:smallint;index" json:"year"` // Release year, bounded by validation
	Description string    `gorm:"type:text" json:"description"`
	CategoryID  *uint     `json:"-"`
	Category    *Category `gorm:"constraint:OnDelete:SET NULL" json:"category"`
	Genres      []Genre   `gorm:"many2many:genre_titles;constraint:OnDelete:CASCADE" json:"genre"`
	Reviews     []Review  `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	// Rating is the average review score, computed by a subquery at read
	// time and never stored. Nil when the title has no reviews.
	Rating *float64 `gorm:"->;-:migration" json:"rating"`
}
