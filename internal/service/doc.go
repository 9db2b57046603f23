// Package service contains the application use cases for users and tasks.
//
// Each command or query runs as one unit of work inside a single database
// transaction obtained through store.RunInTransaction. Stores are rebound to that
// transaction with WithTx, so a failure at any step rolls the whole operation back.
//
// Task commands carry the Actor that issued them. Authorization is decided here,
// not in the HTTP layer:
//
//   - CreateTask and GetTasks are open to any actor.
//   - UpdateTask, DeleteTask and AssignTask require the creator or an admin.
//   - CompleteTask accepts the assignee, the creator or an admin.
//   - GetTask accepts the creator, the assignee or an admin.
//
// Notifications are submitted only after the transaction has committed. Their
// failure is logged and never changes the outcome of the operation.
//
// Services return the sentinel errors declared in errors.go, which the API layer
// maps to HTTP status codes with errors.Is.
package service
