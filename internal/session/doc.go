// Package session owns the host side of one mapped connection.
//
// Ownership boundary:
// - the set of remappable registries a host reconciles
// - applying received ID tables
// - unmapping every registry when the session ends
//
// Lifecycle order:
// - add registries -> complete bootstrap -> begin -> apply -> end
//
// - end may run without a prior apply; unmap is a no-op then.
//
// - failures inside apply and end are logged and returned, never fatal.
package session
