package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/effective-security/mcpbench/assistants"
	"github.com/effective-security/mcpbench/tools"
	"github.com/effective-security/x/values"
)

// ToolsCmd lists the tools exposed by the server.
type ToolsCmd struct {
	Schema bool `name:"schema" help:"Print the input schema of each tool"`
}

func (c *ToolsCmd) Run(g *Globals) error {
	ctx := g.context()
	client, err := g.Connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	list, err := client.Tools(ctx)
	if err != nil {
		return err
	}
	return printTools(os.Stdout, c.Schema, list...)
}

func printTools(w io.Writer, schema bool, list ...tools.ITool) error {
	for _, t := range list {
		fmt.Fprintf(w, "%-22s %s\n", t.Name(), t.Description())
		if schema && t.Parameters() != nil {
			bs, err := t.Parameters().MarshalJSON()
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%-22s %s\n", "", bs)
		}
	}
	return nil
}

// AskCmd answers one question and exits.
type AskCmd struct {
	Question []string `arg:"" help:"The question"`
	Verbose  bool     `name:"verbose" help:"Print model and tool calls to stderr"`
}

func (c *AskCmd) Run(g *Globals) error {
	ctx := g.context()
	agent, client, err := g.Agent(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	var opts []assistants.Option
	if c.Verbose {
		opts = append(opts, assistants.WithCallback(assistants.NewPrinterCallback(os.Stderr)))
	}
	res, err := agent.Run(ctx, strings.Join(c.Question, " "), opts...)
	if err != nil {
		return err
	}
	fmt.Println(values.StringsCoalesce(res.Content(), "[no content returned]"))
	return nil
}
