package domain

import (
	"fmt"
	"strings"
	"time"
)

type ID int64

// User is the persisted account record. A zero ID marks a value that has not
// been stored yet.
type User struct {
	ID        ID
	Username  string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) IsNew() bool {
	return u.ID == 0
}

// SaveMode decides what Save does with a non-zero ID that has no row.
type SaveMode string

const (
	// SaveModeUpsert inserts the user as a new row with a store-generated ID.
	SaveModeUpsert SaveMode = "upsert"
	// SaveModeStrict rejects the save with a not-found error.
	SaveModeStrict SaveMode = "strict"
)

func ParseSaveMode(value string) (SaveMode, error) {
	switch SaveMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", SaveModeUpsert:
		return SaveModeUpsert, nil
	case SaveModeStrict:
		return SaveModeStrict, nil
	default:
		return "", fmt.Errorf("unknown save mode %q", value)
	}
}
