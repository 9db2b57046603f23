// Package api exposes the task and user services over HTTP. Handlers decode and
// validate requests, resolve the authenticated Actor, call the services and map
// their errors to status codes and client-safe messages.
package api
