// Package inbound is the HTTP surface of the onboarding flow.
//
// Every protected route re-runs the guard on its own request; the flow has
// no memory beyond the state token round-tripped through the caller.
package inbound
