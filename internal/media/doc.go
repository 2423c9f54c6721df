// Package media defines the container formats and quality presets a
// conversion job can target, plus helpers for deriving display metadata
// from caller-supplied filenames.
//
// Formats and presets are closed sets: parsing rejects anything outside
// them so invalid values never reach the queue or the engine. The codec
// pairing for each format lives with the engine's command builder; this
// package only owns the enumeration and its parsing rules.
package media
