// Package simulator provides a synthetic sensor Driver for tests, demos and
// the recording tool.
//
// Each simulated sensor renders a flat wall with up to six people standing
// in front of it. Depth pixels on a person carry that person's player
// index; the colour image is a gradient with the people tinted in their
// palette colour; skeletons follow a rest pose that sways from tick to
// tick. Every bring-up step can be made to fail, and a stream can be made
// to break after a number of reads.
package simulator
