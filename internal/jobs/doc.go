// Package jobs runs long task processing in the background on asynq.
//
// The Client enqueues one "task:process" job per task that needs processing and
// hands the job ID back to the service, which stores it on the task. The
// Processor executes those jobs in the worker process and reports progress
// through the Lifecycle it is given.
package jobs
