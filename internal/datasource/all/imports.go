// Package all enables every built-in connector kind. It exists for side
// effects only:
//
//	import _ "datascout/internal/datasource/all"
//
// makes the file, HTTP, database and document store kinds available through
// datasource.Load.
package all

import (
	_ "datascout/internal/datasource/csvsource"
	_ "datascout/internal/datasource/excel"
	_ "datascout/internal/datasource/jsonsource"
	_ "datascout/internal/datasource/mongo"
	_ "datascout/internal/datasource/postgres"
	_ "datascout/internal/datasource/sqlsource"
	_ "datascout/internal/datasource/xmlsource"
)
