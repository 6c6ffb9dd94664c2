package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/serpent-lang/serpent/internal/ast"
	"github.com/serpent-lang/serpent/internal/classes"
	"github.com/serpent-lang/serpent/internal/compiler"
	"github.com/serpent-lang/serpent/internal/diag"
	"github.com/serpent-lang/serpent/internal/parser"
)

// Server is a language server speaking JSON-RPC 2.0 with LSP framing.
type Server struct {
	// Documents tracks open files by URI
	Documents map[string]*Document
	mu        sync.RWMutex

	in  io.Reader
	out io.Writer
	wmu sync.Mutex

	// Root path for workspace
	rootPath string
	hosts    classes.HostRegistry
	shutdown bool
}

// Document is an open file and the result of its last analysis.
type Document struct {
	URI     string
	Content string
	Version int
	Path    string
	Module  classes.ModulePath
	File    *ast.File
	Symbols *symbolIndex
	Errors  []diag.Diagnostic
}

// Option configures a Server.
type Option func(*Server)

// WithHosts makes host types resolvable in the compiled documents.
func WithHosts(hosts classes.HostRegistry) Option {
	return func(s *Server) { s.hosts = hosts }
}

// NewServer creates a server reading requests from in and writing
// responses and notifications to out.
func NewServer(in io.Reader, out io.Writer, opts ...Option) *Server {
	s := &Server{
		Documents: make(map[string]*Document),
		in:        in,
		out:       out,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run serves messages until the input ends, an exit notification arrives
// or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	reader := bufio.NewReader(s.in)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		body, err := readMessage(reader)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if body == nil {
			continue
		}

		var msg jsonrpcMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Printf("Failed to parse JSON-RPC message: %v", err)
			continue
		}
		if msg.Method == "exit" {
			return nil
		}

		if response := s.handleMessage(ctx, &msg); response != nil {
			if err := s.send(response); err != nil {
				log.Printf("Failed to send response: %v", err)
			}
		}
	}
}

// readMessage reads one framed message. A frame without a usable
// Content-Length yields a nil body.
func readMessage(r *bufio.Reader) ([]byte, error) {
	contentLength := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			log.Printf("Invalid Content-Length header: %v", err)
			continue
		}
		contentLength = n
	}
	if contentLength < 0 {
		return nil, nil
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	return body, nil
}

// jsonrpcMessage represents a JSON-RPC 2.0 message.
type jsonrpcMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601
	codeInvalidRequest = -32600
)

func reply(msg *jsonrpcMessage, result any) *jsonrpcMessage {
	return &jsonrpcMessage{JSONRPC: "2.0", ID: msg.ID, Result: result}
}

func replyError(msg *jsonrpcMessage, code int, format string, args ...any) *jsonrpcMessage {
	return &jsonrpcMessage{
		JSONRPC: "2.0",
		ID:      msg.ID,
		Error:   &jsonrpcError{Code: code, Message: fmt.Sprintf(format, args...)},
	}
}

// handleMessage processes a JSON-RPC message and returns a response.
func (s *Server) handleMessage(ctx context.Context, msg *jsonrpcMessage) *jsonrpcMessage {
	if s.shutdown && msg.ID != nil {
		return replyError(msg, codeInvalidRequest, "server is shutting down")
	}

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "textDocument/didOpen":
		s.handleDidOpen(msg)
		return nil
	case "textDocument/didChange":
		s.handleDidChange(msg)
		return nil
	case "textDocument/didClose":
		s.handleDidClose(msg)
		return nil
	case "textDocument/completion":
		return s.handleCompletion(msg)
	case "textDocument/hover":
		return s.handleHover(msg)
	case "textDocument/definition":
		return s.handleDefinition(msg)
	case "shutdown":
		s.shutdown = true
		return reply(msg, nil)
	default:
		if msg.ID != nil {
			return replyError(msg, codeMethodNotFound, "Method not found: %s", msg.Method)
		}
		return nil
	}
}

// send writes one framed message.
func (s *Server) send(msg *jsonrpcMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	if _, err := fmt.Fprintf(s.out, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := s.out.Write(data); err != nil {
		return fmt.Errorf("failed to write body: %w", err)
	}
	return nil
}

// InitializeParams represents the initialize request parameters.
type InitializeParams struct {
	ProcessID    int            `json:"processId,omitempty"`
	RootPath     string         `json:"rootPath,omitempty"`
	RootURI      string         `json:"rootUri,omitempty"`
	Capabilities map[string]any `json:"capabilities,omitempty"`
}

// InitializeResult represents the initialize response.
type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
	ServerInfo   ServerInfo         `json:"serverInfo"`
}

type ServerCapabilities struct {
	TextDocumentSync   int            `json:"textDocumentSync"`
	CompletionProvider map[string]any `json:"completionProvider,omitempty"`
	HoverProvider      bool           `json:"hoverProvider"`
	DefinitionProvider bool           `json:"definitionProvider"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (s *Server) handleInitialize(msg *jsonrpcMessage) *jsonrpcMessage {
	var params InitializeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return replyError(msg, codeInvalidParams, "Invalid params: %v", err)
	}

	if params.RootURI != "" {
		s.rootPath = uriToPath(params.RootURI)
	} else if params.RootPath != "" {
		s.rootPath = params.RootPath
	}

	return reply(msg, InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: 1, // full document sync
			CompletionProvider: map[string]any{
				"triggerCharacters": []string{"."},
			},
			HoverProvider:      true,
			DefinitionProvider: true,
		},
		ServerInfo: ServerInfo{
			Name:    "serpent-lsp",
			Version: "0.1.0",
		},
	})
}

// DidOpenTextDocumentParams represents didOpen notification parameters.
type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

func (s *Server) handleDidOpen(msg *jsonrpcMessage) {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		log.Printf("Failed to parse didOpen params: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := uriToPath(params.TextDocument.URI)
	s.Documents[params.TextDocument.URI] = &Document{
		URI:     params.TextDocument.URI,
		Content: params.TextDocument.Text,
		Version: params.TextDocument.Version,
		Path:    path,
		Module:  s.modulePath(path),
	}
	s.analyze()
}

// DidChangeTextDocumentParams represents didChange notification parameters.
type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

type VersionedTextDocumentIdentifier struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
}

type TextDocumentContentChangeEvent struct {
	Text string `json:"text"`
}

func (s *Server) handleDidChange(msg *jsonrpcMessage) {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		log.Printf("Failed to parse didChange params: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.Documents[params.TextDocument.URI]
	if !ok || len(params.ContentChanges) == 0 {
		return
	}
	// Full sync: the last change holds the whole text.
	doc.Content = params.ContentChanges[len(params.ContentChanges)-1].Text
	doc.Version = params.TextDocument.Version
	s.analyze()
}

func (s *Server) handleDidClose(msg *jsonrpcMessage) {
	var params struct {
		TextDocument TextDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		log.Printf("Failed to parse didClose params: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.Documents[params.TextDocument.URI]
	if !ok {
		return
	}
	delete(s.Documents, params.TextDocument.URI)
	doc.Errors = nil
	s.publishDiagnostics(doc)
	s.analyze()
}

type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

// modulePath derives the dotted module name of a file from its place
// under the workspace root.
func (s *Server) modulePath(path string) classes.ModulePath {
	rel := filepath.Base(path)
	if s.rootPath != "" {
		if r, err := filepath.Rel(s.rootPath, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), ".py")
	return classes.ModulePath(strings.ReplaceAll(rel, "/", "."))
}

// analyze compiles every open document together, so classes defined in
// one can serve as bases in another, and publishes the diagnostics of
// each. Callers hold s.mu.
func (s *Server) analyze() {
	uris := make([]string, 0, len(s.Documents))
	for uri := range s.Documents {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	sources := make([]compiler.Source, 0, len(uris))
	byPath := make(map[string]*Document, len(uris))
	for _, uri := range uris {
		doc := s.Documents[uri]
		doc.File, _ = parser.Parse(doc.Content, parser.WithFilename(doc.Path))
		doc.Symbols = indexFile(doc.File, []rune(doc.Content))
		doc.Errors = nil
		sources = append(sources, compiler.Source{Path: doc.Path, Module: doc.Module, Text: doc.Content})
		byPath[doc.Path] = doc
	}

	_, diags := compiler.New(compiler.WithHosts(s.hosts)).Compile(sources...)
	for _, d := range diags {
		if doc, ok := byPath[d.Span.Filename]; ok {
			doc.Errors = append(doc.Errors, d)
		}
	}

	for _, uri := range uris {
		s.publishDiagnostics(s.Documents[uri])
	}
}

// PublishDiagnosticsParams is the payload of textDocument/publishDiagnostics.
type PublishDiagnosticsParams struct {
	URI         string       `json:"uri"`
	Version     int          `json:"version,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// publishDiagnostics sends diagnostics to the client.
func (s *Server) publishDiagnostics(doc *Document) {
	text := []rune(doc.Content)
	lspDiagnostics := make([]Diagnostic, 0, len(doc.Errors))
	for _, d := range doc.Errors {
		message := d.Message
		if d.Help != "" {
			message += "\nhelp: " + d.Help
		}
		lspDiagnostics = append(lspDiagnostics, Diagnostic{
			Range:    spanRange(text, d.Span),
			Severity: diagnosticSeverity(d.Severity),
			Message:  message,
			Code:     string(d.Code),
			Source:   "serpent",
		})
	}

	params, err := json.Marshal(PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     doc.Version,
		Diagnostics: lspDiagnostics,
	})
	if err != nil {
		log.Printf("Failed to marshal diagnostics: %v", err)
		return
	}
	if err := s.send(&jsonrpcMessage{
		JSONRPC: "2.0",
		Method:  "textDocument/publishDiagnostics",
		Params:  params,
	}); err != nil {
		log.Printf("Failed to publish diagnostics: %v", err)
	}
}

// Diagnostic represents an LSP diagnostic.
type Diagnostic struct {
	Range    Range  `json:"range"`
	Severity int    `json:"severity"`
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
	Source   string `json:"source,omitempty"`
}

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// spanRange converts a 1-based span with rune offsets to a 0-based range.
// Spans without offsets cover the rest of their line.
func spanRange(text []rune, span diag.Span) Range {
	if span.Line <= 0 {
		return Range{}
	}
	start := Position{Line: span.Line - 1, Character: max(span.Column-1, 0)}
	if span.End > span.Start && span.End <= len(text) {
		return Range{Start: start, End: offsetToPosition(text, span.End)}
	}
	end := start
	for i := positionToOffset(text, start); i < len(text) && text[i] != '\n'; i++ {
		end.Character++
	}
	return Range{Start: start, End: end}
}

func diagnosticSeverity(sev diag.Severity) int {
	switch sev {
	case diag.SeverityError:
		return 1 // Error
	case diag.SeverityWarning:
		return 2 // Warning
	case diag.SeverityNote:
		return 3 // Information
	default:
		return 1
	}
}

// uriToPath converts a file:// URI to a file path.
func uriToPath(uri string) string {
	if path, ok := strings.CutPrefix(uri, "file://"); ok {
		// Handle Windows paths
		if len(path) > 2 && path[0] == '/' && path[2] == ':' {
			path = path[1:]
		}
		return path
	}
	return uri
}
