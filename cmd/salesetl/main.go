// Command salesetl loads a quarterly sales file and a client directory into a
// relational table and prints a revenue summary.
//
// Usage:
//
//	salesetl [run] [flags]
//	salesetl validate [flags]
//
// Configuration comes from built-in defaults, salesetl.yaml, a .env file, the
// environment (SALESETL_* plus DB_PASSWORD and friends) and flags, in that
// order of precedence. The exit status tells the failure class apart:
// 2 configuration, 3 missing input, 4 load, 5 transform, 6 database.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	// register all backends with the storage factory.
	_ "salesetl/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
