// Package relay drives multi-turn conversations against a tool-calling
// completion backend.
//
// A Runner owns one conversation: it keeps a token-budgeted History,
// issues requests through a Requester, reassembles streamed responses
// with an Assembler, dispatches requested tool calls through a Registry,
// and loops until the backend produces a terminal answer or the run is
// cancelled. Provider implementations live under provider/, conversation
// persistence under store/, and OpenTelemetry-backed run hooks under
// observer/.
package relay
