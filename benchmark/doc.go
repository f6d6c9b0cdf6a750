// Package benchmark runs labeled math tasks through an agent and reports
// tool selection accuracy, answer correctness, latency and token usage.
//
// A task is answered by a single agent run. The first tool call requested
// by the model and the first tool response are compared with the task
// labels. Rows are written as CSV and aggregated into a Summary.
package benchmark
