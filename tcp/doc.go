// Package tcp implements a TCP client/server socket state machine layered
// on an eventloop.Loop, with a scatter/gather send queue backed by
// dataframe.Storage and zero-copy sendfile for file-backed frames.
package tcp
