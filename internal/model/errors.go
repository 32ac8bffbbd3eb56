package model

import "errors"

var (
	// ErrMalformedServiceData marks a service record that cannot be turned into a bookable service.
	ErrMalformedServiceData = errors.New("malformed service data")
	// ErrMalformedBookingInterval marks a booking whose end is not after its start.
	ErrMalformedBookingInterval = errors.New("malformed booking interval")
	// ErrMalformedWorkingWindow marks a working window that cannot be used for slot generation.
	ErrMalformedWorkingWindow = errors.New("malformed working window")
)
