// Package batch coordinates conversion jobs from registration through a
// sequential batch run.
//
// The Coordinator owns two things the job rows deliberately do not carry:
// the in-memory source and result payloads, and the single engine session
// every conversion runs through. Jobs are processed strictly in
// registration order, one at a time, and a failure is recorded on the
// failing job without disturbing the rest of the batch.
package batch
