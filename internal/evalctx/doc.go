// Package evalctx is the surface node callbacks program against. A Context
// is created once per evaluation session and handed to every callback
// together with the Evaluation record of the node whose turn it is. Every
// operation reports a status.Status and never panics; index -1 is accepted
// everywhere as "no target".
package evalctx
