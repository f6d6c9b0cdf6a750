package mcp

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ConnectLocal serves srv in process and connects a client to it over
// in-memory transports. Closing the client ends the server session.
func ConnectLocal(ctx context.Context, srv *Server) (*Client, error) {
	st, ct := sdk.NewInMemoryTransports()
	ss, err := srv.SDK().Connect(ctx, st, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start local MCP session")
	}

	c, err := ConnectTransport(ctx, ct)
	if err != nil {
		_ = ss.Close()
		return nil, err
	}
	c.server = ss

	logger.ContextKV(ctx, xlog.DEBUG, "status", "local_session", "tools", len(srv.reg.Tools()))
	return c, nil
}
