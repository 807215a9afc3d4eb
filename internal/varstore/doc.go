// Package varstore implements the shared variable store boundary the bridge
// publishes into.
//
// The store holds declared, typed variables addressed either by name or by
// the integer handle obtained from a name lookup. The bridge is a pure
// writer: it resolves its handles once at startup and then sets values every
// poll cycle.
//
// The main components are:
//
//   - [Handle], [Kind], [Value]: the data model shared by every component
//   - [Client]: the interface the bridge publishes through
//   - [Conn]: client for the newline-delimited JSON protocol over TCP or
//     unix sockets
//   - [Registry]: the server-side slot table
//   - [Server]: protocol server used by the vard development daemon
//   - [DB]: optional SQLite persistence behind the registry
//   - [HTTPServer]: read-only HTTP view of the registry
//
// Users of the neuriovars library should not need to interact with this
// package directly; the bridge wires it up from its own options.
package varstore
