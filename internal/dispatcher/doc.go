// Package dispatcher broadcasts event groups to registered actions.
//
// Actions are registered once at start-up, in an order that defines the
// broadcast order, and the dispatcher is then finalised. Raise delivers an
// event group to every action in turn:
//
//  1. Purge, when the group intersects the action's purge mask.
//  2. Refresh, when it intersects the refresh mask.
//  3. Execute, when it intersects the trigger mask.
//
// # Cycles
//
// A Raise made while another Raise is running (an action triggered by the
// broadcast produced a result of its own) belongs to the same cycle. Within
// one cycle each action is purged, refreshed and triggered at most once, the
// action whose result started a Raise is never triggered by it, and nesting
// deeper than MaxDepth panics. Observers are called once, after the outermost
// Raise returns, with the union of every group raised in the cycle.
//
// All Raise calls must happen on the coordinating goroutine.
package dispatcher
