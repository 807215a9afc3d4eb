// Package sensor provides the HTTP client and payload decoding for Neurio
// CT energy sensors.
//
// This package is internal to neuriovars and handles one side of the bridge:
// fetching the /current-sample document from the sensor and turning it into
// typed per-channel readings.
//
// The main components are:
//
//   - [Client]: HTTP client that streams the response body into a caller
//     supplied writer
//   - [Sample] and [Channel]: wire representation of the sensor payload
//   - [Number]: scalar that tolerates quoted numeric strings from older
//     firmware revisions
//   - [Extract]: decodes a payload into [Readings], validating the fields
//     the bridge publishes
//
// Users of the neuriovars library should not need to interact with this
// package directly.
package sensor
