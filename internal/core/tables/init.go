// Package tables defines the concrete record types and registers their
// schemas with the core registry. Import this package to make the tables
// visible to /api/tables and the CLI.
package tables
