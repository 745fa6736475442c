// Package governanceservice implements redevelopment governance inside the
// society-redevelopment context.
//
// The module owns the project state machine, the developer proposal store,
// the member voting ledger and the selection coordinator. Decision events are
// handed to a notification dispatcher after the owning write commits, so a
// delivery failure can never undo a vote or a selection.
package governanceservice
