package lsp

import (
	"encoding/json"
	"strings"

	"github.com/serpent-lang/serpent/internal/ast"
	"github.com/serpent-lang/serpent/internal/diag"
	"github.com/serpent-lang/serpent/internal/lexer"
)

type symbolKind int

const (
	symFunction symbolKind = iota
	symClass
	symMethod
	symAttribute
	symVariable
	symParam
	symImport
)

func (k symbolKind) String() string {
	switch k {
	case symClass:
		return "class"
	case symMethod:
		return "method"
	case symAttribute:
		return "attribute"
	case symVariable:
		return "variable"
	case symParam:
		return "parameter"
	case symImport:
		return "import"
	}
	return "function"
}

// symbol is one name bound in a document.
type symbol struct {
	Name   string
	Kind   symbolKind
	Detail string
	// Span covers the defining name.
	Span lexer.Span
	// Scope covers the def or class body, for functions and classes.
	Scope lexer.Span
	// Container is the enclosing class, if any.
	Container *symbol
	// Members of a class; locals and parameters of a function.
	Members []*symbol
	// Bases of a class, by source name.
	Bases []string
	// Module is the dotted module an import refers to, and Target the
	// name imported from it.
	Module string
	Target string
}

func (s *symbol) member(name string) *symbol {
	for _, m := range s.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func (s *symbol) add(m *symbol) {
	if s.member(m.Name) == nil {
		s.Members = append(s.Members, m)
	}
}

func (s *symbol) contains(offset int) bool {
	return offset >= s.Scope.Start && offset <= s.Scope.End
}

// symbolIndex lists the names a document binds. The first binding of a
// name is its definition.
type symbolIndex struct {
	Top []*symbol
}

func (x *symbolIndex) lookupTop(name string) *symbol {
	for _, s := range x.Top {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (x *symbolIndex) addTop(s *symbol) {
	if x.lookupTop(s.Name) == nil {
		x.Top = append(x.Top, s)
	}
}

// enclosing returns the innermost function and class whose body holds
// offset.
func (x *symbolIndex) enclosing(offset int) (fn, class *symbol) {
	for _, s := range x.Top {
		switch s.Kind {
		case symFunction:
			if s.contains(offset) {
				return s, nil
			}
		case symClass:
			if !s.contains(offset) {
				continue
			}
			for _, m := range s.Members {
				if m.Kind == symMethod && m.contains(offset) {
					return m, s
				}
			}
			return nil, s
		}
	}
	return nil, nil
}

// lookup resolves a bare name at offset: function locals first, then
// module level.
func (x *symbolIndex) lookup(name string, offset int) *symbol {
	if fn, _ := x.enclosing(offset); fn != nil {
		if s := fn.member(name); s != nil {
			return s
		}
	}
	return x.lookupTop(name)
}

// classMember finds name on class or its bases within the same document.
func (x *symbolIndex) classMember(class *symbol, name string) *symbol {
	seen := map[*symbol]bool{}
	var find func(c *symbol) *symbol
	find = func(c *symbol) *symbol {
		if c == nil || seen[c] {
			return nil
		}
		seen[c] = true
		if m := c.member(name); m != nil {
			return m
		}
		for _, base := range c.Bases {
			if b := x.lookupTop(base); b != nil && b.Kind == symClass {
				if m := find(b); m != nil {
					return m
				}
			}
		}
		return nil
	}
	return find(class)
}

// indexFile collects the symbols of file. text is the document source
// indexed by rune, used to render signatures.
func indexFile(file *ast.File, text []rune) *symbolIndex {
	x := &symbolIndex{}
	if file == nil {
		return x
	}
	for _, stmt := range file.Body {
		ast.Walk(stmt, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.FuncDef:
				x.addTop(indexFunc(n, nil, text))
				return false
			case *ast.ClassDef:
				x.addTop(indexClass(n, text))
				return false
			}
			for _, s := range bindings(n, text) {
				x.addTop(s)
			}
			return true
		})
	}
	return x
}

func indexClass(def *ast.ClassDef, text []rune) *symbol {
	class := &symbol{
		Name:  def.Name.Name,
		Kind:  symClass,
		Span:  def.Name.Span(),
		Scope: def.Span(),
	}
	for _, b := range def.Bases {
		class.Bases = append(class.Bases, source(text, b.Span()))
	}
	class.Detail = "class " + class.Name
	if len(class.Bases) > 0 {
		class.Detail += "(" + strings.Join(class.Bases, ", ") + ")"
	}

	var methods []*ast.FuncDef
	for _, stmt := range def.Body {
		ast.Walk(stmt, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.FuncDef:
				class.add(indexFunc(n, class, text))
				methods = append(methods, n)
				return false
			case *ast.ClassDef:
				return false
			}
			for _, s := range bindings(n, text) {
				s.Kind = symAttribute
				s.Container = class
				class.add(s)
			}
			return true
		})
	}

	// Attributes assigned through the receiver in any method.
	for _, m := range methods {
		if len(m.Params) == 0 || m.Params[0].Name == nil {
			continue
		}
		recv := m.Params[0].Name.Name
		for _, stmt := range m.Body {
			ast.Walk(stmt, func(n ast.Node) bool {
				var targets []ast.Expr
				switch n := n.(type) {
				case *ast.FuncDef, *ast.ClassDef:
					return false
				case *ast.AssignStmt:
					targets = n.Targets
				case *ast.AnnAssignStmt:
					targets = []ast.Expr{n.Target}
				}
				for _, t := range targets {
					attr, ok := t.(*ast.AttributeExpr)
					if !ok {
						continue
					}
					if id, ok := attr.X.(*ast.Ident); ok && id.Name == recv {
						class.add(&symbol{
							Name:      attr.Name.Name,
							Kind:      symAttribute,
							Detail:    source(text, n.Span()),
							Span:      attr.Name.Span(),
							Container: class,
						})
					}
				}
				return true
			})
		}
	}
	return class
}

func indexFunc(def *ast.FuncDef, class *symbol, text []rune) *symbol {
	fn := &symbol{
		Name:      def.Name.Name,
		Kind:      symFunction,
		Span:      def.Name.Span(),
		Scope:     def.Span(),
		Container: class,
	}
	if class != nil {
		fn.Kind = symMethod
	}

	params := make([]string, 0, len(def.Params))
	for _, p := range def.Params {
		params = append(params, source(text, p.Span()))
		if p.Name == nil {
			continue
		}
		fn.add(&symbol{
			Name:   p.Name.Name,
			Kind:   symParam,
			Detail: source(text, p.Span()),
			Span:   p.Name.Span(),
		})
	}
	fn.Detail = "def " + fn.Name + "(" + strings.Join(params, ", ") + ")"
	if def.Returns != nil {
		fn.Detail += " -> " + source(text, def.Returns.Span())
	}
	for _, dec := range def.Decorators {
		fn.Detail = "@" + source(text, dec.Span()) + "\n" + fn.Detail
	}

	for _, stmt := range def.Body {
		ast.Walk(stmt, func(n ast.Node) bool {
			switch n.(type) {
			case *ast.FuncDef, *ast.ClassDef:
				return false
			}
			for _, s := range bindings(n, text) {
				fn.add(s)
			}
			return true
		})
	}
	return fn
}

// bindings returns the names a simple statement binds.
func bindings(n ast.Node, text []rune) []*symbol {
	var out []*symbol
	variable := func(target ast.Expr, detail string) {
		ast.Walk(target, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.Ident:
				out = append(out, &symbol{Name: n.Name, Kind: symVariable, Detail: detail, Span: n.Span()})
			case *ast.AttributeExpr, *ast.IndexExpr:
				return false
			}
			return true
		})
	}

	switch n := n.(type) {
	case *ast.AssignStmt:
		for _, t := range n.Targets {
			variable(t, source(text, n.Span()))
		}
	case *ast.AnnAssignStmt:
		variable(n.Target, source(text, n.Span()))
	case *ast.ForStmt:
		variable(n.Target, "for "+source(text, n.Target.Span())+" in "+source(text, n.Iter.Span()))
	case *ast.ImportStmt:
		for _, a := range n.Names {
			s := &symbol{Name: a.Name, Kind: symImport, Detail: "import " + a.Name, Span: a.Span(), Module: a.Name}
			if a.Alias != nil {
				s.Name = a.Alias.Name
				s.Span = a.Alias.Span()
				s.Detail += " as " + a.Alias.Name
			}
			out = append(out, s)
		}
	case *ast.FromImportStmt:
		module := strings.Repeat(".", n.Level) + n.Module
		for _, a := range n.Names {
			s := &symbol{
				Name:   a.Name,
				Kind:   symImport,
				Detail: "from " + module + " import " + a.Name,
				Span:   a.Span(),
				Module: n.Module,
				Target: a.Name,
			}
			if a.Alias != nil {
				s.Name = a.Alias.Name
				s.Span = a.Alias.Span()
				s.Detail += " as " + a.Alias.Name
			}
			out = append(out, s)
		}
	}
	return out
}

// source returns the text covered by span, or "" when the span carries
// no offsets.
func source(text []rune, span lexer.Span) string {
	if span.Start < 0 || span.End > len(text) || span.End <= span.Start {
		return ""
	}
	return strings.TrimSpace(string(text[span.Start:span.End]))
}

// DefinitionParams represents definition request parameters.
type DefinitionParams struct {
	TextDocumentPositionParams
}

// Location represents a location in a document.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

func (s *Server) handleDefinition(msg *jsonrpcMessage) *jsonrpcMessage {
	var params DefinitionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return replyError(msg, codeInvalidParams, "Invalid params: %v", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.Documents[params.TextDocument.URI]
	if !ok || doc.Symbols == nil {
		return reply(msg, nil)
	}

	sym, owner := s.resolve(doc, params.Position)
	if sym == nil {
		return reply(msg, nil)
	}
	return reply(msg, Location{
		URI:   owner.URI,
		Range: spanRange([]rune(owner.Content), diag.Span(sym.Span)),
	})
}

// resolve finds the symbol named at pos and the document defining it.
// Imports are followed into other open documents.
func (s *Server) resolve(doc *Document, pos Position) (*symbol, *Document) {
	text := []rune(doc.Content)
	offset := positionToOffset(text, pos)
	name, qualifier := wordAt(text, offset)
	if name == "" {
		return nil, nil
	}

	if qualifier == "" {
		sym := doc.Symbols.lookup(name, offset)
		if sym != nil && sym.Kind == symImport {
			if target, owner := s.follow(sym); target != nil {
				return target, owner
			}
		}
		if sym == nil {
			return nil, nil
		}
		return sym, doc
	}

	container, owner := s.qualifier(doc, qualifier, offset)
	if container == nil {
		return nil, nil
	}
	if container.Kind == symImport {
		if other := s.documentFor(container.Module); other != nil && container.Target == "" {
			if sym := other.Symbols.lookupTop(name); sym != nil {
				return sym, other
			}
		}
		return nil, nil
	}
	if sym := owner.Symbols.classMember(container, name); sym != nil {
		return sym, owner
	}
	return nil, nil
}

// qualifier resolves the expression left of a dot to a class or module
// import. self and cls refer to the enclosing class.
func (s *Server) qualifier(doc *Document, name string, offset int) (*symbol, *Document) {
	fn, class := doc.Symbols.enclosing(offset)
	if class != nil && fn != nil {
		if p := fn.member(name); p != nil && p == firstParam(fn) {
			return class, doc
		}
	}

	sym := doc.Symbols.lookup(name, offset)
	if sym == nil {
		return nil, nil
	}
	switch sym.Kind {
	case symClass:
		return sym, doc
	case symImport:
		if sym.Target == "" {
			return sym, doc
		}
		if target, owner := s.follow(sym); target != nil && target.Kind == symClass {
			return target, owner
		}
	}
	return nil, nil
}

func firstParam(fn *symbol) *symbol {
	for _, m := range fn.Members {
		if m.Kind == symParam {
			return m
		}
	}
	return nil
}

// follow resolves a from-import to its definition in another open
// document.
func (s *Server) follow(imp *symbol) (*symbol, *Document) {
	if imp.Target == "" {
		return nil, nil
	}
	other := s.documentFor(imp.Module)
	if other == nil {
		return nil, nil
	}
	if sym := other.Symbols.lookupTop(imp.Target); sym != nil {
		return sym, other
	}
	return nil, nil
}

func (s *Server) documentFor(module string) *Document {
	for _, d := range s.Documents {
		if string(d.Module) == module && d.Symbols != nil {
			return d
		}
	}
	return nil
}

func isIdentRune(r rune) bool {
	return r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r > 0x7f && r != 0xa0
}

// wordAt returns the identifier under offset and, when it follows a dot,
// the identifier before the dot.
func wordAt(text []rune, offset int) (name, qualifier string) {
	if offset > len(text) {
		offset = len(text)
	}
	start, end := offset, offset
	for start > 0 && isIdentRune(text[start-1]) {
		start--
	}
	for end < len(text) && isIdentRune(text[end]) {
		end++
	}
	if start == end {
		return "", ""
	}
	name = string(text[start:end])
	if start > 0 && text[start-1] == '.' {
		q := start - 1
		for q > 0 && isIdentRune(text[q-1]) {
			q--
		}
		qualifier = string(text[q : start-1])
	}
	return name, qualifier
}

// positionToOffset converts a 0-based position to a rune offset.
func positionToOffset(text []rune, pos Position) int {
	line, col := 0, 0
	for i, r := range text {
		if line == pos.Line && col == pos.Character {
			return i
		}
		if r == '\n' {
			if line == pos.Line {
				return i
			}
			line++
			col = 0
			continue
		}
		col++
	}
	return len(text)
}

// offsetToPosition converts a rune offset to a 0-based position.
func offsetToPosition(text []rune, offset int) Position {
	var pos Position
	for i := 0; i < offset && i < len(text); i++ {
		if text[i] == '\n' {
			pos.Line++
			pos.Character = 0
			continue
		}
		pos.Character++
	}
	return pos
}
