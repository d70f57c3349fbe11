package domain

// Category Model: single-valued classification of a Title.
// Deleting a category detaches its titles (category set to null).
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"-"`
	Name string `gorm:"size:256;not null" json:"name"`
	Slug string `gorm:"size:50;unique;not null" json:"slug"` // Lookup key for the API
}

// Genre Model: multi-valued classification, many-to-many with Title.
type Genre struct {
	ID   uint   `gorm:"primaryKey" json:"-"`
	Name string `gorm:"size:256;not null" json:"name"`
	Slug string `gorm:"size:50;unique;not null" json:"slug"` // Lookup key for the API
}
