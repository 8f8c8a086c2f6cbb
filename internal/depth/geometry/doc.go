// Package geometry owns layer G0 of the depth data model.
//
// Responsibilities: the enumerated image resolutions a sensor stream can
// run at, their pixel dimensions, and the fixed optical constants (fields
// of view, colour/IR baseline, valid depth range) that every mapping and
// processing routine above this layer is calibrated against.
// Key types: ImageResolution.
//
// Dependency rule: G0 depends on nothing else in this module.
package geometry
