package main

import (
	"github.com/effective-security/mcpbench/mathtools"
	"github.com/effective-security/mcpbench/mcp"
)

// ServeCmd runs the math MCP server.
type ServeCmd struct {
	HTTP         string   `name:"http" help:"Serve streamable HTTP on the address instead of stdio, e.g. localhost:8080"`
	Endpoint     string   `name:"endpoint" help:"HTTP endpoint path" default:"/mcp"`
	Tools        []string `name:"tool" help:"Expose only the named tools"`
	Instructions string   `name:"instructions" help:"Instructions returned to clients on initialize"`
}

func (c *ServeCmd) Run(g *Globals) error {
	reg := mathtools.Default()
	if len(c.Tools) > 0 {
		sub, err := reg.Subset(c.Tools...)
		if err != nil {
			return err
		}
		reg = sub
	}

	var opts []mcp.ServerOption
	if c.Instructions != "" {
		opts = append(opts, mcp.WithInstructions(c.Instructions))
	}
	srv, err := mcp.NewServer(reg, opts...)
	if err != nil {
		return err
	}

	if c.HTTP != "" {
		return srv.ListenAndServe(g.context(), c.HTTP, c.Endpoint)
	}
	return srv.ServeStdio(g.context())
}
