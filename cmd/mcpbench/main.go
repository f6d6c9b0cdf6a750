// Command mcpbench serves the math tools over MCP, chats with the tool
// agent and benchmarks its answers.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpbench", "cmd")

// CLI is the command tree of mcpbench.
type CLI struct {
	Globals

	Serve ServeCmd `cmd:"" help:"Run the math MCP server"`
	Chat  ChatCmd  `cmd:"" default:"1" help:"Start an interactive chat with the agent"`
	Bench BenchCmd `cmd:"" help:"Run the benchmark tasks"`
	Tools ToolsCmd `cmd:"" help:"List the tools exposed by the server"`
	Ask   AskCmd   `cmd:"" help:"Ask the agent a single question"`
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("mcpbench"),
		kong.Description("MCP math tool server, agent and benchmark"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars(kongVars),
	)

	// stdout is the protocol channel of the stdio server
	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	xlog.SetGlobalLogLevel(cli.Level())

	var cancel context.CancelFunc
	cli.ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}
