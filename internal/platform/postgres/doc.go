// Package postgres provides PostgreSQL implementations of the storage
// interfaces defined in the internal/store package, along with the embedded
// schema migrations they depend on. Stores accept a store.DBTX so the same
// implementation runs against a pooled *sql.DB or inside a transaction.
package postgres
