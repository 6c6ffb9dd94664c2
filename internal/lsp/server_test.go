package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

const mainSource = `class Animal:
    def __init__(self, name):
        self.name = name

    def speak(self):
        return self.name

def greet(a, punct="!"):
    return a.speak() + punct

pet = Animal("rex")
print(greet(pet))
`

type wireMessage struct {
	ID     *int            `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *jsonrpcError   `json:"error"`
}

type session struct {
	in     bytes.Buffer
	nextID int
}

func (s *session) write(t *testing.T, method string, withID bool, params any) int {
	t.Helper()
	msg := map[string]any{"jsonrpc": "2.0", "method": method}
	id := 0
	if withID {
		s.nextID++
		id = s.nextID
		msg["id"] = id
	}
	if params != nil {
		msg["params"] = params
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal %s: %v", method, err)
	}
	fmt.Fprintf(&s.in, "Content-Length: %d\r\n\r\n%s", len(data), data)
	return id
}

func (s *session) request(t *testing.T, method string, params any) int {
	t.Helper()
	return s.write(t, method, true, params)
}

func (s *session) notify(t *testing.T, method string, params any) {
	t.Helper()
	s.write(t, method, false, params)
}

// run serves the queued input and returns responses by id and the last
// diagnostics published per URI.
func (s *session) run(t *testing.T) (map[int]wireMessage, map[string]PublishDiagnosticsParams) {
	t.Helper()
	var out bytes.Buffer
	srv := NewServer(&s.in, &out)
	if err := srv.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	responses := map[int]wireMessage{}
	diagnostics := map[string]PublishDiagnosticsParams{}
	r := bufio.NewReader(&out)
	for {
		body, err := readMessage(r)
		if err != nil {
			break
		}
		var msg wireMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			t.Fatalf("bad output frame %q: %v", body, err)
		}
		switch {
		case msg.ID != nil:
			responses[*msg.ID] = msg
		case msg.Method == "textDocument/publishDiagnostics":
			var p PublishDiagnosticsParams
			if err := json.Unmarshal(msg.Params, &p); err != nil {
				t.Fatalf("bad diagnostics: %v", err)
			}
			diagnostics[p.URI] = p
		}
	}
	return responses, diagnostics
}

func position(uri string, line, char int) TextDocumentPositionParams {
	return TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     Position{Line: line, Character: char},
	}
}

func openDoc(uri, text string) DidOpenTextDocumentParams {
	return DidOpenTextDocumentParams{TextDocument: TextDocumentItem{URI: uri, LanguageID: "python", Version: 1, Text: text}}
}

func decode[T any](t *testing.T, msg wireMessage) T {
	t.Helper()
	var v T
	if msg.Error != nil {
		t.Fatalf("unexpected error response: %s", msg.Error.Message)
	}
	if err := json.Unmarshal(msg.Result, &v); err != nil {
		t.Fatalf("decode %s: %v", msg.Result, err)
	}
	return v
}

func TestServerSession(t *testing.T) {
	const mainURI = "file:///ws/main.py"
	const badURI = "file:///ws/bad.py"

	var s session
	initID := s.request(t, "initialize", InitializeParams{RootURI: "file:///ws"})
	s.notify(t, "initialized", map[string]any{})
	s.notify(t, "textDocument/didOpen", openDoc(mainURI, mainSource))
	s.notify(t, "textDocument/didOpen", openDoc(badURI, "break\n"))
	hoverID := s.request(t, "textDocument/hover", position(mainURI, 10, 7))
	defID := s.request(t, "textDocument/definition", position(mainURI, 11, 7))
	attrID := s.request(t, "textDocument/definition", position(mainURI, 5, 21))
	memberID := s.request(t, "textDocument/completion", position(mainURI, 5, 20))
	globalID := s.request(t, "textDocument/completion", position(mainURI, 11, 0))
	unknownID := s.request(t, "workspace/symbol", map[string]any{})
	shutdownID := s.request(t, "shutdown", nil)
	s.notify(t, "exit", nil)

	responses, diagnostics := s.run(t)

	init := decode[InitializeResult](t, responses[initID])
	if !init.Capabilities.HoverProvider || !init.Capabilities.DefinitionProvider {
		t.Fatalf("capabilities = %+v", init.Capabilities)
	}
	if init.ServerInfo.Name != "serpent-lsp" {
		t.Fatalf("server name = %q", init.ServerInfo.Name)
	}

	if got := diagnostics[mainURI].Diagnostics; len(got) != 0 {
		t.Fatalf("main.py diagnostics = %+v, want none", got)
	}
	bad := diagnostics[badURI].Diagnostics
	if len(bad) != 1 || !strings.Contains(bad[0].Message, "'break' outside loop") {
		t.Fatalf("bad.py diagnostics = %+v", bad)
	}
	if bad[0].Severity != 1 || bad[0].Range.Start.Line != 0 {
		t.Fatalf("bad.py diagnostic = %+v", bad[0])
	}

	hover := decode[Hover](t, responses[hoverID])
	if !strings.Contains(hover.Contents.Value, "class Animal") {
		t.Fatalf("hover = %q", hover.Contents.Value)
	}

	def := decode[Location](t, responses[defID])
	if def.URI != mainURI || def.Range.Start != (Position{Line: 7, Character: 4}) {
		t.Fatalf("definition of greet = %+v", def)
	}

	attr := decode[Location](t, responses[attrID])
	if attr.Range.Start != (Position{Line: 2, Character: 13}) {
		t.Fatalf("definition of self.name = %+v", attr)
	}

	members := labels(decode[CompletionList](t, responses[memberID]).Items)
	for _, want := range []string{"__init__", "name", "speak"} {
		if !members[want] {
			t.Fatalf("member completions missing %q: %v", want, members)
		}
	}
	if members["print"] {
		t.Fatalf("member completions include builtins: %v", members)
	}

	globals := labels(decode[CompletionList](t, responses[globalID]).Items)
	for _, want := range []string{"Animal", "greet", "pet", "print", "while"} {
		if !globals[want] {
			t.Fatalf("completions missing %q", want)
		}
	}

	if e := responses[unknownID].Error; e == nil || e.Code != codeMethodNotFound {
		t.Fatalf("unknown method response = %+v", responses[unknownID])
	}
	if _, ok := responses[shutdownID]; !ok {
		t.Fatalf("no shutdown response")
	}
}

func labels(items []CompletionItem) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[it.Label] = true
	}
	return out
}

func TestDefinitionFollowsImports(t *testing.T) {
	const libURI = "file:///ws/lib/shapes.py"
	const mainURI = "file:///ws/main.py"

	var s session
	s.request(t, "initialize", InitializeParams{RootURI: "file:///ws"})
	s.notify(t, "textDocument/didOpen", openDoc(libURI, "class Square:\n    def area(self):\n        return 4\n"))
	s.notify(t, "textDocument/didOpen", openDoc(mainURI, "from lib.shapes import Square\nprint(Square().area())\n"))
	defID := s.request(t, "textDocument/definition", position(mainURI, 1, 8))
	s.notify(t, "exit", nil)

	responses, diagnostics := s.run(t)

	if got := diagnostics[mainURI].Diagnostics; len(got) != 0 {
		t.Fatalf("main.py diagnostics = %+v, want none", got)
	}
	def := decode[Location](t, responses[defID])
	if def.URI != libURI || def.Range.Start != (Position{Line: 0, Character: 6}) {
		t.Fatalf("definition = %+v", def)
	}
}

func TestDidCloseClearsDiagnostics(t *testing.T) {
	const uri = "file:///ws/bad.py"

	var s session
	s.request(t, "initialize", InitializeParams{RootURI: "file:///ws"})
	s.notify(t, "textDocument/didOpen", openDoc(uri, "continue\n"))
	s.notify(t, "textDocument/didClose", map[string]any{"textDocument": map[string]string{"uri": uri}})
	s.notify(t, "exit", nil)

	_, diagnostics := s.run(t)
	if got, ok := diagnostics[uri]; !ok || len(got.Diagnostics) != 0 {
		t.Fatalf("diagnostics after close = %+v", got)
	}
}

func TestDidChangeReanalyzes(t *testing.T) {
	const uri = "file:///ws/main.py"

	var s session
	s.request(t, "initialize", InitializeParams{RootURI: "file:///ws"})
	s.notify(t, "textDocument/didOpen", openDoc(uri, "break\n"))
	s.notify(t, "textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument:   VersionedTextDocumentIdentifier{URI: uri, Version: 2},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: "x = 1\n"}},
	})
	s.notify(t, "exit", nil)

	_, diagnostics := s.run(t)
	got := diagnostics[uri]
	if got.Version != 2 || len(got.Diagnostics) != 0 {
		t.Fatalf("diagnostics after change = %+v", got)
	}
}

func TestReadMessageHeaders(t *testing.T) {
	body := `{"jsonrpc":"2.0","method":"initialized"}`
	input := fmt.Sprintf("content-length: %d\r\nContent-Type: application/vscode-jsonrpc\r\n\r\n%s", len(body), body)
	got, err := readMessage(bufio.NewReader(strings.NewReader(input)))
	if err != nil {
		t.Fatalf("readMessage: %v", err)
	}
	if string(got) != body {
		t.Fatalf("body = %q", got)
	}
}

func TestPositionConversions(t *testing.T) {
	text := []rune("héllo\nwörld\n")
	tests := []struct {
		pos    Position
		offset int
	}{
		{Position{0, 0}, 0},
		{Position{0, 2}, 2},
		{Position{1, 0}, 6},
		{Position{1, 3}, 9},
	}
	for _, tt := range tests {
		if got := positionToOffset(text, tt.pos); got != tt.offset {
			t.Fatalf("positionToOffset(%+v) = %d, want %d", tt.pos, got, tt.offset)
		}
		if got := offsetToPosition(text, tt.offset); got != tt.pos {
			t.Fatalf("offsetToPosition(%d) = %+v, want %+v", tt.offset, got, tt.pos)
		}
	}
	// Past the end of a line clamps to its newline.
	if got := positionToOffset(text, Position{0, 40}); got != 5 {
		t.Fatalf("clamped offset = %d, want 5", got)
	}
}

func TestWordAt(t *testing.T) {
	text := []rune("x = self.total + y")
	tests := []struct {
		offset          int
		name, qualifier string
	}{
		{0, "x", ""},
		{5, "self", ""},
		{11, "total", "self"},
		{14, "total", "self"},
		{17, "y", ""},
		{2, "", ""},
	}
	for _, tt := range tests {
		name, qualifier := wordAt(text, tt.offset)
		if name != tt.name || qualifier != tt.qualifier {
			t.Fatalf("wordAt(%d) = %q, %q; want %q, %q", tt.offset, name, qualifier, tt.name, tt.qualifier)
		}
	}
}
