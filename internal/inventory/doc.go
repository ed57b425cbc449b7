// Package inventory implements the book inventory manager: the message
// protocol, the manager actor's handlers, a typed client for callers and the
// startup seed.
//
// Every command or query handled by the manager runs inside its own scope
// (a store transaction) that is closed before the reply is sent. Errors reach
// callers as *Failure with a Kind of resource_unavailable, domain_error or
// internal_error.
package inventory
