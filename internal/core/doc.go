// Package core provides the record model, query engine and import pipeline
// for staffdesk.
//
// It has no transport or database code of its own. Web handlers, the CLI
// and the inbox watcher all drive it; concrete stores live under store/.
//
// # Schemas and stores
//
// A [Schema] binds an entity type to its table: field names, column names,
// field types and accessors. Entities are pointer types embedding [Model]
// (id and version). Persistence goes through the [Store] interface, whose
// Apply must be atomic: either every change in a batch is written or none.
//
//	tables.Employees()                      // *Schema[*Employee]
//	memstore.New(tables.Employees())        // in-process
//	sqlite.New(db, tables.Employees())      // embedded file
//	postgres.New(pool, tables.Employees())  // server
//
// # Two-phase writes
//
// A [Repository] stages Add, Edit and Delete calls and applies them in one
// Commit. A staged insert keeps id 0 until the commit succeeds and writes
// the store-assigned id back. Repositories are per caller; build one per
// request or import.
// [Service] wraps a repository with validate-stage-commit CRUD calls.
//
// # Queries
//
// A [Request] (take, skip, sort, filter tree) is compiled against a schema
// into a [Plan]. Unknown fields, unknown operators and values that do not
// fit the field type are rejected with [ErrValidation]. Plans run natively
// on stores that implement [PlanRunner]; otherwise [ExecutePlan] evaluates
// them in memory with the same semantics: filter, count, stable sort with
// id as the final key, then page.
//
// # Import
//
// [Importer] reads a CSV export, skips the header and any row with the
// wrong cell count, converts cells by field type, and commits the whole
// file at once. [ImportLimiter] bounds concurrent imports.
//
// # Error handling
//
// Errors fall into four categories checked with errors.Is: [ErrValidation],
// [ErrNotFound], [ErrConcurrency] and [ErrStore]. [MapError] turns any error
// into a coded [UserMessage]:
//
//   - VAL001-VAL003: malformed requests, bad dates, missing fields
//   - NF001: record not found
//   - CON001: record changed or removed concurrently
//   - DB000-DB003: store failures (duplicates, connections, timeouts)
//   - FILE001-FILE005: upload problems (size, type, busy)
package core
