// Package notify carries task notifications from the services to their recipients.
//
// The API process hands notifications to a Dispatcher, a bounded in-memory queue
// drained by a small worker pool, which publishes them to RabbitMQ without ever
// blocking the caller. The worker process runs a Consumer that reads the queue,
// resolves each recipient and hands the message to a Deliverer (Mailgun, or a
// logging fallback when Mailgun is not configured).
package notify
