// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories with the storage package. The kinds made available are:
//
//   - "postgres" (salesetl/internal/storage/postgres)
//   - "mysql"    (salesetl/internal/storage/mysql)
//   - "mssql"    (salesetl/internal/storage/mssql)
//   - "sqlite"   (salesetl/internal/storage/sqlite)
//
// A binary that needs only a subset can import the backends directly instead.
package all

import (
	_ "salesetl/internal/storage/mssql"
	_ "salesetl/internal/storage/mysql"
	_ "salesetl/internal/storage/postgres"
	_ "salesetl/internal/storage/sqlite"
)
