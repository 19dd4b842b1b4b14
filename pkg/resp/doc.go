// Package resp implements the RESP2 framing spoken over a kvwire
// connection.
//
// Clients use WriteCommand and ReadReply. ReadCommand and the Write*
// helpers are the server half, used by test peers and fixtures.
package resp
