package capture

import (
	"errors"
	"fmt"
)

// ErrorKind names the bring-up step that failed.
type ErrorKind int

const (
	KindDeviceCreate ErrorKind = iota + 1
	KindDeviceInit
	KindDeviceInvalid
	KindStreamOpen
	KindSkeletonTrackingEnable
)

func (k ErrorKind) String() string {
	switch k {
	case KindDeviceCreate:
		return "device create"
	case KindDeviceInit:
		return "device init"
	case KindDeviceInvalid:
		return "device invalid"
	case KindStreamOpen:
		return "stream open"
	case KindSkeletonTrackingEnable:
		return "skeleton tracking enable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Stream names a sensor stream.
type Stream int

const (
	StreamNone Stream = iota
	StreamColor
	StreamDepth
	StreamSkeleton
)

func (s Stream) String() string {
	switch s {
	case StreamNone:
		return "none"
	case StreamColor:
		return "color"
	case StreamDepth:
		return "depth"
	case StreamSkeleton:
		return "skeleton"
	default:
		return fmt.Sprintf("stream(%d)", int(s))
	}
}

// Error is returned by Device.Start when bring-up fails. Match it with
// errors.Is against the Err* kind sentinels, or errors.As for the details.
type Error struct {
	Kind     ErrorKind
	Stream   Stream     // set for KindStreamOpen
	Code     StatusCode // driver status code, CodeOK when none was reported
	DeviceID string
	Err      error
}

// Kind sentinels for errors.Is.
var (
	ErrDeviceCreate           = &Error{Kind: KindDeviceCreate}
	ErrDeviceInit             = &Error{Kind: KindDeviceInit}
	ErrDeviceInvalid          = &Error{Kind: KindDeviceInvalid}
	ErrStreamOpen             = &Error{Kind: KindStreamOpen}
	ErrSkeletonTrackingEnable = &Error{Kind: KindSkeletonTrackingEnable}
)

// Other Device errors.
var (
	ErrNotCapturing  = errors.New("device is not capturing")
	ErrNotSupported  = errors.New("not supported by this sensor")
	ErrStartCanceled = errors.New("start canceled by stop")
)

func newError(kind ErrorKind, stream Stream, deviceID string, err error) *Error {
	e := &Error{Kind: kind, Stream: stream, DeviceID: deviceID, Err: err}
	var code StatusCode
	if errors.As(err, &code) {
		e.Code = code
	}
	return e
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " failed"
	if e.Stream != StreamNone {
		msg = fmt.Sprintf("%s (%s stream)", msg, e.Stream)
	}
	if e.DeviceID != "" {
		msg = fmt.Sprintf("%s on device %s", msg, e.DeviceID)
	}
	if e.Code != CodeOK {
		msg = fmt.Sprintf("%s [code %d]", msg, int32(e.Code))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind. A target with a Stream set
// also requires the stream to match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Stream == StreamNone || t.Stream == e.Stream
}
