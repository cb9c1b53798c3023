// Package transfer exchanges session exports with the cloud relay.
//
// The relay hands out short-lived opaque codes: sending uploads an export
// payload and returns a code, receiving redeems a code for the payload.
// Repeated invalid codes lock the client out for a cool-down window so a
// user cannot brute-force codes through us.
package transfer
