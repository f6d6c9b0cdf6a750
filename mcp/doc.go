// Package mcp serves the math tools over the Model Context Protocol and
// connects agents to such a server, adapting remote tools to tools.ITool.
//
// The server speaks stdio or streamable HTTP. The client launches the
// server as a child process, or dials an HTTP endpoint.
package mcp
