// Package statusfeed publishes the state of every node after each pass so an
// external editor can follow an evaluation. Events go to a socket.io server
// or, without one, to the log.
package statusfeed
