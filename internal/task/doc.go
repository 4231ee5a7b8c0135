// Package task runs named units of work outside the request path.
//
// Callers enqueue a task by name with a string payload through a Queue.
// The Queue hands it to a Broker, which delivers it to a WorkerPool once
// its due time has passed. The pool looks up the handler registered for
// the name and runs it with a RetryContext. A handler that wants another
// attempt returns the error produced by RetryContext.Retry; any other error
// or a panic ends the task as a PermanentFailure.
//
// Delivery is at least once. Handlers must tolerate running twice for the
// same task.
package task
