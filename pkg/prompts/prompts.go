// Package prompts assembles the system prompt of the math agent from the
// response format instruction and few-shot examples.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/tools"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/go-playground/validator/v10"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpbench", "prompts")

// ResponseFormat instructs the model to answer without filler words.
const ResponseFormat = "You are an analytical agent who answers user questions directly. " +
	"Always answer the user question directly, without any pre-filler words. " +
	"Use the few shot examples in the prompt as reference for the response format."

//go:embed assets/*
var assets embed.FS

// Example is one few-shot trajectory, rendered for display.
type Example struct {
	MessagesDisplay string `json:"messages_display" yaml:"messages_display" validate:"required"`
}

// ToolInfo describes a tool to templates.
type ToolInfo struct {
	Name        string
	Description string
}

// Data is the template input.
type Data struct {
	Instruction string
	FewShot     string
	Tools       []ToolInfo
	// ToolsJSON is a fenced JSON block listing the tools.
	ToolsJSON string
}

// Config selects the template and the few-shot examples.
type Config struct {
	// TemplateFile overrides the embedded system prompt template.
	TemplateFile string
	// FewShotFile overrides the embedded few-shot examples.
	FewShotFile string
}

// DefaultFewShot returns the embedded few-shot examples.
func DefaultFewShot() []Example {
	data, err := assets.ReadFile("assets/fewshot.jsonl")
	if err != nil {
		panic(err)
	}
	list, err := ParseFewShot(data)
	if err != nil {
		panic(err)
	}
	return list
}

// LoadFewShot loads examples from a JSON array or JSON lines file.
// An empty path returns the embedded examples.
func LoadFewShot(path string) ([]Example, error) {
	if path == "" {
		return DefaultFewShot(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithMessagef(err, "unable to read few-shot file")
	}
	list, err := ParseFewShot(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "invalid few-shot file %s", path)
	}
	return list, nil
}

// ParseFewShot decodes a JSON array of examples, or one example per line.
func ParseFewShot(data []byte) ([]Example, error) {
	var list []Example
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, errors.WithStack(err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		for {
			var ex Example
			err := dec.Decode(&ex)
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, errors.WithStack(err)
			}
			list = append(list, ex)
		}
	}

	v := validator.New()
	for i := range list {
		if err := v.Struct(&list[i]); err != nil {
			return nil, errors.Wrapf(err, "example %d", i)
		}
	}
	return list, nil
}

// FewShotPrefix joins the examples with a blank line.
func FewShotPrefix(list []Example) string {
	parts := make([]string, 0, len(list))
	for _, ex := range list {
		parts = append(parts, ex.MessagesDisplay)
	}
	return strings.Join(parts, "\n\n")
}

// Parse returns a template with the sprig functions.
func Parse(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to parse template %s", name)
	}
	return tmpl, nil
}

// Render executes the template with data.
func Render(tmpl *template.Template, data *Data) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.WithMessagef(err, "failed to render template %s", tmpl.Name())
	}
	return strings.TrimSpace(buf.String()), nil
}

// SystemPrompt renders the system prompt for the tools.
func SystemPrompt(cfg Config, list ...tools.ITool) (string, error) {
	var text []byte
	var err error
	if cfg.TemplateFile != "" {
		text, err = os.ReadFile(cfg.TemplateFile)
		if err != nil {
			return "", errors.WithMessagef(err, "unable to read template file")
		}
	} else {
		text, err = assets.ReadFile("assets/system.tmpl")
		if err != nil {
			return "", errors.WithStack(err)
		}
	}

	tmpl, err := Parse("system", string(text))
	if err != nil {
		return "", err
	}

	examples, err := LoadFewShot(cfg.FewShotFile)
	if err != nil {
		return "", err
	}

	data := &Data{
		Instruction: ResponseFormat,
		FewShot:     FewShotPrefix(examples),
	}
	for _, t := range list {
		data.Tools = append(data.Tools, ToolInfo{Name: t.Name(), Description: t.Description()})
	}
	if len(list) > 0 {
		data.ToolsJSON = tools.GetDescriptions(list...)
	}

	prompt, err := Render(tmpl, data)
	if err != nil {
		return "", err
	}
	logger.KV(xlog.DEBUG,
		"template", values.StringsCoalesce(cfg.TemplateFile, "embedded"),
		"examples", len(examples),
		"tools", len(data.Tools),
		"size", len(prompt))
	return prompt, nil
}
