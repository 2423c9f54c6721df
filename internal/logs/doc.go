// Package logs reads the run logs that reel commands write.
//
// Every serve run gets its own timestamped file under the configured log
// directory, and reel.log points at the newest one so operators and the
// `reel logs` command always have a stable path to follow. Tail reads those
// files with bounded memory, supports "last N lines" via a negative offset,
// and polls for new lines in follow mode until the context is canceled.
package logs
