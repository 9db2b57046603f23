// Package store defines the persistence contracts for users and tasks.
// Services depend only on these interfaces; internal/platform/postgres
// provides the implementations. Every store can be rebound to a transaction
// with WithTx so a service operation runs as a single unit of work.
package store
