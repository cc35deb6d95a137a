// Package worker consumes the submissions queued in queue mode.
//
// Each SQS record carries one submission record. VALID submissions are e-mailed
// and become SENT; other states were already answered by the dispatcher and are
// only logged. With an archive backend every processed record is stored under
// submissions/<uid>.json in its final state.
package worker
