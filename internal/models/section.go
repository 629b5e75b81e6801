package models

import "time"

// Section orders questions within a form.
type Section struct {
	ID        string    `db:"id" json:"id"`
	FormID    string    `db:"form_id" json:"formId"`
	Title     string    `db:"title" json:"title"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
