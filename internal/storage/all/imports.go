// Package all enables every built-in storage backend. Import it for side
// effects:
//
//	import _ "datascout/internal/storage/all"
package all

import (
	_ "datascout/internal/storage/mssql"
	_ "datascout/internal/storage/mysql"
	_ "datascout/internal/storage/postgres"
	_ "datascout/internal/storage/sqlite"
)
