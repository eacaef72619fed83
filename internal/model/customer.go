// Package model defines the persisted domain records shared by the store,
// the analysis pipeline, and the API layer.
package model

import "time"

// Customer is the person on the recorded call. Created on intake; the
// analysis pipeline reads it and never mutates it.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
