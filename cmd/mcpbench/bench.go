package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/assistants"
	"github.com/effective-security/mcpbench/benchmark"
	"github.com/effective-security/xlog"
)

// DefaultResultsFile is the results file used when the output is a directory.
const DefaultResultsFile = "math_results_raw.csv"

// BenchCmd runs the benchmark tasks and writes the results.
type BenchCmd struct {
	Tasks         string `name:"tasks" type:"path" help:"Tasks file, JSON or YAML. Default: the built-in tasks"`
	Output        string `name:"output" help:"Results CSV file or directory" default:"results.csv"`
	Summary       string `name:"summary" help:"Summary file, empty to skip" default:"benchmark_summary.txt"`
	SummaryFormat string `name:"summary-format" help:"Summary format" default:"text" enum:"text,json,yaml,toml"`
	Parallel      int    `name:"parallel" help:"Number of tasks run at once" default:"1"`
	Trajectories  string `name:"trajectories" help:"Directory of the per-task transcripts"`
	Verbose       bool   `name:"verbose" help:"Print model and tool calls to stderr"`
}

func (c *BenchCmd) Run(g *Globals) error {
	ctx := g.context()

	tasks, err := benchmark.LoadTasks(c.Tasks)
	if err != nil {
		return err
	}

	agent, client, err := g.Agent(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	opts := []benchmark.Option{
		benchmark.WithOutput(os.Stdout),
		benchmark.WithParallel(c.Parallel),
		benchmark.WithModelName(agent.LLM.GetName()),
		benchmark.WithRecursionLimit(g.Recursions),
		benchmark.WithTrajectoryDir(c.Trajectories),
	}
	if c.Verbose {
		opts = append(opts, benchmark.WithCallback(assistants.NewPrinterCallback(os.Stderr)))
	}

	fmt.Println("Enabled benchmark mode, going to run through various tasks for math problems...")
	rows, runErr := benchmark.NewRunner(agent, opts...).Run(ctx, tasks)
	if runErr != nil {
		logger.ContextKV(ctx, xlog.WARNING, "reason", "interrupted", "completed", len(rows), "err", runErr.Error())
	}

	output, err := c.write(rows)
	if err != nil {
		return err
	}
	fmt.Printf("\nBenchmark complete: wrote %d rows to %s\n", len(rows), output)
	return runErr
}

// write saves the results and the summary, and returns the results path.
func (c *BenchCmd) write(rows []*benchmark.Row) (string, error) {
	output := ResultsPath(c.Output)
	if err := writeFile(output, func(w io.Writer) error {
		return benchmark.WriteCSV(w, rows)
	}); err != nil {
		return "", err
	}

	if c.Summary != "" {
		s := benchmark.Summarize(rows)
		if err := writeFile(c.Summary, func(w io.Writer) error {
			return benchmark.WriteSummary(w, s, c.SummaryFormat)
		}); err != nil {
			return "", err
		}
	}
	return output, nil
}

// ResultsPath returns the results file of the output flag.
// An existing directory, or a path ending with a separator, gets the
// default file name.
func ResultsPath(output string) string {
	if output == "" {
		return filepath.Join("results", DefaultResultsFile)
	}
	if os.IsPathSeparator(output[len(output)-1]) {
		return filepath.Join(output, DefaultResultsFile)
	}
	if fi, err := os.Stat(output); err == nil && fi.IsDir() {
		return filepath.Join(output, DefaultResultsFile)
	}
	return output
}

func writeFile(path string, write func(w io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory for %s", path)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	if err = write(f); err != nil {
		_ = f.Close()
		return err
	}
	return errors.WithStack(f.Close())
}
