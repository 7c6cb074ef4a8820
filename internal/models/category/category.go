package category

import "time"

const MaxNameLength = 100

type Category struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Color     *string   `json:"color,omitempty" db:"color"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Link - связь задачи с категорией
type Link struct {
	TaskID     int64     `json:"task_id" db:"task_id"`
	CategoryID int64     `json:"category_id" db:"category_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
