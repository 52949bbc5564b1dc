// Package all registers every storage backend with the storage factory.
package all

import (
	_ "evadoption/internal/storage/mongo"
	_ "evadoption/internal/storage/mssql"
	_ "evadoption/internal/storage/mysql"
	_ "evadoption/internal/storage/postgres"
	_ "evadoption/internal/storage/sqlite"
)
