package lsp

import (
	"encoding/json"
	"sort"

	"github.com/serpent-lang/serpent/internal/runtime"
)

// CompletionParams represents completion request parameters.
type CompletionParams struct {
	TextDocumentPositionParams
	Context *CompletionContext `json:"context,omitempty"`
}

type CompletionContext struct {
	TriggerKind      int    `json:"triggerKind"`
	TriggerCharacter string `json:"triggerCharacter,omitempty"`
}

// TextDocumentPositionParams represents a position in a text document.
type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

// CompletionList represents a list of completion items.
type CompletionList struct {
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []CompletionItem `json:"items"`
}

type CompletionItem struct {
	Label  string `json:"label"`
	Kind   int    `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

const (
	completionKindMethod   = 2
	completionKindFunction = 3
	completionKindField    = 5
	completionKindVariable = 6
	completionKindClass    = 7
	completionKindModule   = 9
	completionKindKeyword  = 14
)

var keywords = []string{
	"and", "as", "break", "class", "continue", "def", "del", "elif", "else",
	"False", "for", "from", "global", "if", "import", "in", "is", "None",
	"not", "or", "pass", "return", "True", "while",
}

func (s *Server) handleCompletion(msg *jsonrpcMessage) *jsonrpcMessage {
	var params CompletionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return replyError(msg, codeInvalidParams, "Invalid params: %v", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.Documents[params.TextDocument.URI]
	if !ok || doc.Symbols == nil {
		return reply(msg, CompletionList{Items: []CompletionItem{}})
	}
	return reply(msg, CompletionList{Items: s.getCompletions(doc, params.Position)})
}

func (s *Server) getCompletions(doc *Document, pos Position) []CompletionItem {
	text := []rune(doc.Content)
	offset := positionToOffset(text, pos)

	// Member access: complete the members of what precedes the dot.
	if qualifier, ok := memberContext(text, offset); ok {
		container, owner := s.qualifier(doc, qualifier, offset)
		if container == nil {
			return []CompletionItem{}
		}
		if container.Kind == symImport {
			if other := s.documentFor(container.Module); other != nil {
				return dedupe(symbolItems(other.Symbols.Top))
			}
			return []CompletionItem{}
		}
		return dedupe(symbolItems(classMembers(owner.Symbols, container)))
	}

	var items []CompletionItem
	if fn, _ := doc.Symbols.enclosing(offset); fn != nil {
		items = append(items, symbolItems(fn.Members)...)
	}
	items = append(items, symbolItems(doc.Symbols.Top)...)
	for _, name := range runtime.BuiltinNames() {
		items = append(items, CompletionItem{Label: name, Kind: completionKindFunction, Detail: "builtin"})
	}
	for _, kw := range keywords {
		items = append(items, CompletionItem{Label: kw, Kind: completionKindKeyword})
	}
	return dedupe(items)
}

// memberContext reports whether offset follows "name." with an optional
// partial identifier, returning name.
func memberContext(text []rune, offset int) (string, bool) {
	if offset > len(text) {
		offset = len(text)
	}
	i := offset
	for i > 0 && isIdentRune(text[i-1]) {
		i--
	}
	if i == 0 || text[i-1] != '.' {
		return "", false
	}
	end := i - 1
	start := end
	for start > 0 && isIdentRune(text[start-1]) {
		start--
	}
	if start == end {
		return "", false
	}
	return string(text[start:end]), true
}

// classMembers lists the members of class and of its bases, nearest first.
func classMembers(x *symbolIndex, class *symbol) []*symbol {
	var out []*symbol
	seen := map[*symbol]bool{}
	var walk func(c *symbol)
	walk = func(c *symbol) {
		if seen[c] {
			return
		}
		seen[c] = true
		out = append(out, c.Members...)
		for _, base := range c.Bases {
			if b := x.lookupTop(base); b != nil && b.Kind == symClass {
				walk(b)
			}
		}
	}
	walk(class)
	return out
}

func symbolItems(syms []*symbol) []CompletionItem {
	items := make([]CompletionItem, 0, len(syms))
	for _, sym := range syms {
		items = append(items, CompletionItem{
			Label:  sym.Name,
			Kind:   completionKind(sym.Kind),
			Detail: sym.Detail,
		})
	}
	return items
}

func completionKind(k symbolKind) int {
	switch k {
	case symFunction:
		return completionKindFunction
	case symMethod:
		return completionKindMethod
	case symClass:
		return completionKindClass
	case symAttribute:
		return completionKindField
	case symImport:
		return completionKindModule
	}
	return completionKindVariable
}

// dedupe keeps the first item of each label and sorts by label.
func dedupe(items []CompletionItem) []CompletionItem {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		if seen[it.Label] {
			continue
		}
		seen[it.Label] = true
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
