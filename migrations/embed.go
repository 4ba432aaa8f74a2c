// Package migrations holds the embedded schema for both ledger drivers.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// Dir returns the directory of FS holding the migrations of driver.
func Dir(driver string) string {
	if driver == "postgres" {
		return "postgres"
	}
	return "sqlite"
}
