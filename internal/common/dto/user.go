package dto

import "time"

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserList struct {
	Users []User `json:"users"`
	Count int    `json:"count"`
}

type Count struct {
	Count int64 `json:"count"`
}

type Exists struct {
	ID     int64 `json:"id"`
	Exists bool  `json:"exists"`
}
