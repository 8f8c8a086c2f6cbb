// Package recorder owns layer G3 of the depth data model: persisting
// captured Frames to SQLite and playing them back.
//
// A Store holds sessions (one per Device.Start) and their frames. Colour
// surfaces are kept as gzip-compressed BGRX, depth channels as
// gzip-compressed little-endian packed values, and skeletons as JSON.
// Recorder adapts a Store into a capture.FrameHandler. ReplayDriver serves
// a recorded session back through the capture.Driver contract so the same
// Device code runs against a recording.
//
// Dependency rule: G3 may depend on G0 to G2, never on simulator or
// monitor.
package recorder
