// Package tools defines the Tool interface for LLM agents: name, description,
// JSON schema of the arguments and the call itself. Tools are served locally
// by the math registry or remotely by an MCP server.
package tools
