package models

// Statuses and priorities accepted over the API.
const (
	StatusNotStarted = "not-started"
	StatusInProgress = "in-progress"
	StatusDone       = "done"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Todo represents a user-owned task record. Every read and write is
// scoped by (id, user_id). RegisteredDate is set once at creation;
// UpdatedDate moves on every create and update. Both are date-only
// values kept as YYYY-MM-DD text so they round-trip unchanged on
// every driver; lexical order equals chronological order for the
// list sort.
type Todo struct {
	ID             uint     `json:"id" gorm:"primaryKey"`
	UserID         uint     `json:"-" gorm:"not null;index"`
	Title          string   `json:"title" gorm:"type:varchar(255);not null"`
	URL            string   `json:"url" gorm:"type:varchar(2048);not null"`
	Status         string   `json:"status" gorm:"type:varchar(20);not null;default:'not-started'"`
	RegisteredDate string   `json:"registeredDate" gorm:"type:varchar(10);not null"`
	UpdatedDate    string   `json:"updatedDate" gorm:"type:varchar(10);not null"`
	Priority       string   `json:"priority" gorm:"type:varchar(10);not null;default:'medium'"`
	Memo           *string  `json:"memo" gorm:"type:text"` // optional, NULL when omitted
	Tags           []string `json:"tags" gorm:"-"` // resolved tag names, populated by the repository
}

// TodoInput is the request payload for creating or fully replacing a
// todo. Status and Priority default to "not-started" and "medium"
// when omitted.
type TodoInput struct {
	Title    string   `json:"title" validate:"required,max=255"`
	URL      string   `json:"url" validate:"required,httpurl"`
	Status   string   `json:"status" validate:"omitempty,oneof=not-started in-progress done"`
	Tags     []string `json:"tags" validate:"required,min=1"`
	Priority string   `json:"priority" validate:"omitempty,oneof=high medium low"`
	Memo     *string  `json:"memo" validate:"omitempty,max=1000"`
}
