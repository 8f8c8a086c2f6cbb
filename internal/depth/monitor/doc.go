// Package monitor watches a running capture: FrameStats keeps per-second
// throughput figures for periodic logging, and FramePlotter accumulates
// per-frame samples and renders them after a run, as PNG plots or as a
// single HTML dashboard.
//
// Both expose a Sample-style method with the capture.FrameHandler
// signature so they can be chained after a recorder or any other handler.
package monitor
