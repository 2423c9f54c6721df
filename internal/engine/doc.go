// Package engine owns the transcoding engine session: artifact acquisition,
// command construction, real ffmpeg execution, and the simulated fallback
// pipeline.
//
// A Session is constructed and terminated explicitly by its owner. The first
// conversion resolves the engine toolchain lazily; any acquisition failure
// degrades the session to the simulated pipeline so a batch always reaches
// terminal results even without a working engine. A real-mode execution
// failure falls back to the simulated pipeline for that single call rather
// than pinning the whole session to degraded mode.
//
// Sessions are not safe for concurrent conversions; the batch coordinator
// serializes Convert calls. Terminate may be called from another goroutine
// and aborts in-flight work cleanly.
package engine
