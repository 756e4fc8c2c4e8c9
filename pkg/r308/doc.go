// Package r308 speaks the packet protocol of R30x-family fingerprint sensors.
package r308

// Every exchange is one command frame from the host followed by one
// acknowledgement frame from the sensor:
//
//	EF 01 | addr(4) | pid(1) | len(2) | code(1) | payload | sum(2)
//
// All multi-byte fields are big endian. len counts code, payload and sum.
// sum is the 16-bit additive sum of pid, len, code and payload.
// For commands code is the instruction, for acknowledgements it is the
// confirmation code (see Status).
//
// The sensor owns template storage and matching. The host only moves
// images into char buffers, merges them into a model, stores the model
// in a numbered slot and asks the sensor to search a slot range.
