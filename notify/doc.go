// Package notify delivers validated submissions: by e-mail through Amazon SES,
// or onto an Amazon SQS queue for the queue worker.
package notify
