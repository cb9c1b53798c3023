// Package bridge implements the capture/apply bridge to the background agent.
//
// The agent (the extension's background script) connects over a websocket
// and answers tagged requests: GET_CURRENT_SESSION, SWITCH_SESSION and
// CLEAR_SESSION. Requests are correlated by id; at most one agent is
// attached at a time. Failures are surfaced to callers verbatim, never
// retried.
package bridge
