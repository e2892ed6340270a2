// Package recording persists the frames of individual streams on demand.
//
// A Manager keeps one recording state per stream. Start, Stop and writes for
// a stream are serialized by that stream's lock, so a slow writer stalls only
// its own stream. Start and Stop report their outcome as a Result instead of
// an error; repeated calls are harmless.
package recording
