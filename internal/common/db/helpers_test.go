package db

import (
	"database/sql"

	"github.com/AlibekovAA/defis-users/internal/common/logger"
)

type sqlDBWithLog struct {
	*sql.DB
	log *logger.Logger
}
