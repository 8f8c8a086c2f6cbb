// Package capture owns layer G2 of the depth data model: turning a sensor
// into a stream of Frames.
//
// Responsibilities: the contracts a sensor driver implements (Driver,
// Sensor and the optional TiltController and AccelerometerReader), device
// options and their validation, the ordered bring-up sequence with tagged
// errors, and the per-tick assembler that polls each enabled stream,
// keeps the last known data, and hands an owned Frame to a single handler.
// Key types: Device, DeviceOptions, Frame, Error.
//
// A Device is driven from outside, either by calling Update once per render
// tick or by Run. Stop may be called at any time, including from inside the
// frame handler; no handler call begins after Stop returns.
//
// Dependency rule: G2 may depend on G0 and G1 (geometry, imaging,
// skeleton), never on simulator, recorder or monitor.
package capture
