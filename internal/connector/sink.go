// Package connector implements the Connector collaborator (spec.md §1,
// §6): the socket-owning layer the stratifier hands outbound payloads to
// and asks to drop or passthrough a connection by id. The stratifier
// itself never touches a net.Conn directly — every client-facing byte
// flows through a Sink.
package connector

import "errors"

// ErrUnknownClient is returned when an operation names a client id the
// Sink has no live connection for.
var ErrUnknownClient = errors.New("connector: unknown client")

// Sink is the narrow surface the stratifier needs from whatever owns the
// actual sockets (spec.md §1): send a framed payload, drop a connection,
// or hand a connection off to passthrough mode (spec.md §6's
// mining.passthrough, where the connector stops parsing Stratum lines for
// that client and relays them raw to an upstream pool).
type Sink interface {
	Send(clientID uint64, payload []byte) error
	DropClient(clientID uint64) error
	Passthrough(clientID uint64) error
}
