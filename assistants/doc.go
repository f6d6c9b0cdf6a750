// Package assistants provides the react agent loop: the model is called with
// the tool definitions, requested tools run in parallel and their results are
// fed back until the model answers in plain text or the recursion limit is hit.
package assistants
