// Package udp implements a datagram client/server endpoint sharing an
// eventloop.Loop with tcp sockets, using a connected socket for
// single-peer send and per-datagram recvfrom for reads that need the
// sender's address.
package udp
