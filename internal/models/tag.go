package models

// Tag is a label shared across all users and todos. Rows are created
// lazily on first use and never deleted, so the tag table behaves as
// a growing shared vocabulary. Names are trimmed and case-sensitive.
type Tag struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;type:varchar(100);not null"`
}

// TodoTag links a todo to a tag. Deleting a todo cascades its rows;
// deleting tags is not supported.
type TodoTag struct {
	TodoID uint `gorm:"primaryKey"`
	TagID  uint `gorm:"primaryKey"`
	Todo   Todo `gorm:"constraint:OnDelete:CASCADE"`
	Tag    Tag  `gorm:"constraint:OnDelete:CASCADE"`
}
