package lsp

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/serpent-lang/serpent/internal/runtime"
)

// HoverParams represents hover request parameters.
type HoverParams struct {
	TextDocumentPositionParams
}

// Hover represents hover information.
type Hover struct {
	Contents MarkupContent `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

type MarkupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func (s *Server) handleHover(msg *jsonrpcMessage) *jsonrpcMessage {
	var params HoverParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return replyError(msg, codeInvalidParams, "Invalid params: %v", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.Documents[params.TextDocument.URI]
	if !ok || doc.Symbols == nil {
		return reply(msg, nil)
	}

	hover := s.getHover(doc, params.Position)
	if hover == nil {
		return reply(msg, nil)
	}
	return reply(msg, hover)
}

func (s *Server) getHover(doc *Document, pos Position) *Hover {
	sym, _ := s.resolve(doc, pos)
	if sym == nil {
		text := []rune(doc.Content)
		name, qualifier := wordAt(text, positionToOffset(text, pos))
		if qualifier == "" && slices.Contains(runtime.BuiltinNames(), name) {
			return &Hover{Contents: markdown(fmt.Sprintf("(builtin) %s", name), "")}
		}
		return nil
	}

	kind := sym.Kind.String()
	if sym.Container != nil {
		kind = fmt.Sprintf("%s of %s", kind, sym.Container.Name)
	}
	return &Hover{Contents: markdown(sym.Detail, kind)}
}

func markdown(code, note string) MarkupContent {
	value := "```python\n" + code + "\n```"
	if note != "" {
		value += "\n\n" + note
	}
	return MarkupContent{Kind: "markdown", Value: value}
}
