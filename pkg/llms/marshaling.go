package llms

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// partJSON is the tagged wire form of a ContentPart.
type partJSON struct {
	Type         string            `json:"type"`
	Text         string            `json:"text,omitempty"`
	ToolCall     *ToolCall         `json:"tool_call,omitempty"`
	ToolResponse *ToolCallResponse `json:"tool_response,omitempty"`
}

type messageJSON struct {
	Role  Role       `json:"role"`
	Text  string     `json:"text,omitempty"`
	Parts []partJSON `json:"parts,omitempty"`
}

const (
	partTypeText         = "text"
	partTypeToolCall     = "tool_call"
	partTypeToolResponse = "tool_response"
)

// MarshalJSON implements json.Marshaler for Message.
// A message with a single text part is written in the short form {"role","text"}.
func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.Parts) == 1 {
		if tp, ok := m.Parts[0].(TextContent); ok && tp.Text != "" {
			return json.Marshal(messageJSON{Role: m.Role, Text: tp.Text})
		}
	}

	mj := messageJSON{
		Role:  m.Role,
		Parts: make([]partJSON, 0, len(m.Parts)),
	}
	for _, p := range m.Parts {
		switch typ := p.(type) {
		case TextContent:
			mj.Parts = append(mj.Parts, partJSON{Type: partTypeText, Text: typ.Text})
		case ToolCall:
			tc := typ
			mj.Parts = append(mj.Parts, partJSON{Type: partTypeToolCall, ToolCall: &tc})
		case ToolCallResponse:
			tr := typ
			mj.Parts = append(mj.Parts, partJSON{Type: partTypeToolResponse, ToolResponse: &tr})
		default:
			return nil, errors.Errorf("unsupported content part: %T", p)
		}
	}
	return json.Marshal(mj)
}

// UnmarshalJSON implements json.Unmarshaler for Message.
func (m *Message) UnmarshalJSON(data []byte) error {
	var mj messageJSON
	if err := json.Unmarshal(data, &mj); err != nil {
		return errors.WithStack(err)
	}

	m.Role = mj.Role
	m.Parts = nil
	if mj.Text != "" {
		m.Parts = []ContentPart{TextContent{Text: mj.Text}}
		return nil
	}

	for _, p := range mj.Parts {
		switch p.Type {
		case partTypeText, "":
			m.Parts = append(m.Parts, TextContent{Text: p.Text})
		case partTypeToolCall:
			if p.ToolCall == nil || p.ToolCall.FunctionCall == nil {
				return errors.New("tool_call field is required for tool_call type")
			}
			m.Parts = append(m.Parts, *p.ToolCall)
		case partTypeToolResponse:
			if p.ToolResponse == nil {
				return errors.New("tool_response field is required for tool_response type")
			}
			m.Parts = append(m.Parts, *p.ToolResponse)
		default:
			return errors.Errorf("unknown content part type: %s", p.Type)
		}
	}
	return nil
}
