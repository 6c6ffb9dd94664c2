package ast

import "github.com/serpent-lang/serpent/internal/lexer"

// Node represents any AST node with an associated source span.
type Node interface {
	Span() lexer.Span
}

// Expr represents an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt represents a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// node carries the span shared by every concrete node.
type node struct {
	span lexer.Span
}

// Span returns the node's source span.
func (n *node) Span() lexer.Span { return n.span }

// SetSpan updates the node's source span.
func (n *node) SetSpan(span lexer.Span) { n.span = span }

// File represents a parsed source file.
type File struct {
	Name string
	Body []Stmt
	node
}

// NewFile constructs a file node.
func NewFile(name string, span lexer.Span) *File {
	return &File{Name: name, node: node{span}}
}

// ---------------------------------------------------------------------------
// Expressions

// Ident is a bare name.
type Ident struct {
	Name string
	node
}

// NewIdent constructs an identifier node.
func NewIdent(name string, span lexer.Span) *Ident {
	return &Ident{Name: name, node: node{span}}
}

// IntLit is an integer literal.
type IntLit struct {
	Raw   string
	Value int64
	node
}

// NewIntLit constructs an integer literal node.
func NewIntLit(raw string, value int64, span lexer.Span) *IntLit {
	return &IntLit{Raw: raw, Value: value, node: node{span}}
}

// FloatLit is a floating point literal.
type FloatLit struct {
	Raw   string
	Value float64
	node
}

// NewFloatLit constructs a float literal node.
func NewFloatLit(raw string, value float64, span lexer.Span) *FloatLit {
	return &FloatLit{Raw: raw, Value: value, node: node{span}}
}

// StringLit is a string literal; adjacent literals are already joined.
type StringLit struct {
	Value  string
	Prefix string
	node
}

// NewStringLit constructs a string literal node.
func NewStringLit(value, prefix string, span lexer.Span) *StringLit {
	return &StringLit{Value: value, Prefix: prefix, node: node{span}}
}

// BoolLit is True or False.
type BoolLit struct {
	Value bool
	node
}

// NewBoolLit constructs a boolean literal node.
func NewBoolLit(value bool, span lexer.Span) *BoolLit {
	return &BoolLit{Value: value, node: node{span}}
}

// NoneLit is None.
type NoneLit struct {
	node
}

// NewNoneLit constructs a None literal node.
func NewNoneLit(span lexer.Span) *NoneLit {
	return &NoneLit{node: node{span}}
}

// UnaryExpr is -x, +x, ~x or not x.
type UnaryExpr struct {
	Op lexer.TokenType
	X  Expr
	node
}

// NewUnaryExpr constructs a unary expression node.
func NewUnaryExpr(op lexer.TokenType, x Expr, span lexer.Span) *UnaryExpr {
	return &UnaryExpr{Op: op, X: x, node: node{span}}
}

// BinaryExpr is an arithmetic or bitwise operation.
type BinaryExpr struct {
	Op   lexer.TokenType
	X, Y Expr
	node
}

// NewBinaryExpr constructs a binary expression node.
func NewBinaryExpr(op lexer.TokenType, x, y Expr, span lexer.Span) *BinaryExpr {
	return &BinaryExpr{Op: op, X: x, Y: y, node: node{span}}
}

// BoolOpExpr is x and y / x or y.
type BoolOpExpr struct {
	Op   lexer.TokenType
	X, Y Expr
	node
}

// NewBoolOpExpr constructs a short-circuit boolean expression node.
func NewBoolOpExpr(op lexer.TokenType, x, y Expr, span lexer.Span) *BoolOpExpr {
	return &BoolOpExpr{Op: op, X: x, Y: y, node: node{span}}
}

// CompareOp names a comparison operator.
type CompareOp string

const (
	CmpEq    CompareOp = "=="
	CmpNotEq CompareOp = "!="
	CmpLt    CompareOp = "<"
	CmpLe    CompareOp = "<="
	CmpGt    CompareOp = ">"
	CmpGe    CompareOp = ">="
	CmpIs    CompareOp = "is"
	CmpIsNot CompareOp = "is not"
	CmpIn    CompareOp = "in"
	CmpNotIn CompareOp = "not in"
)

// CompareExpr is a (possibly chained) comparison: Left Ops[0] Comparators[0] ...
type CompareExpr struct {
	Left        Expr
	Ops         []CompareOp
	Comparators []Expr
	node
}

// NewCompareExpr constructs a comparison node.
func NewCompareExpr(left Expr, ops []CompareOp, comparators []Expr, span lexer.Span) *CompareExpr {
	return &CompareExpr{Left: left, Ops: ops, Comparators: comparators, node: node{span}}
}

// CondExpr is Then if Cond else Else.
type CondExpr struct {
	Cond, Then, Else Expr
	node
}

// NewCondExpr constructs a conditional expression node.
func NewCondExpr(cond, then, els Expr, span lexer.Span) *CondExpr {
	return &CondExpr{Cond: cond, Then: then, Else: els, node: node{span}}
}

// Arg is one call argument. Name is set for keyword arguments.
type Arg struct {
	Name       *Ident
	Value      Expr
	Star       bool
	DoubleStar bool
	node
}

// NewArg constructs a call argument node.
func NewArg(name *Ident, value Expr, span lexer.Span) *Arg {
	return &Arg{Name: name, Value: value, node: node{span}}
}

// CallExpr is Func(Args...).
type CallExpr struct {
	Func Expr
	Args []*Arg
	node
}

// NewCallExpr constructs a call node.
func NewCallExpr(fn Expr, args []*Arg, span lexer.Span) *CallExpr {
	return &CallExpr{Func: fn, Args: args, node: node{span}}
}

// AttributeExpr is X.Name.
type AttributeExpr struct {
	X    Expr
	Name *Ident
	node
}

// NewAttributeExpr constructs an attribute access node.
func NewAttributeExpr(x Expr, name *Ident, span lexer.Span) *AttributeExpr {
	return &AttributeExpr{X: x, Name: name, node: node{span}}
}

// IndexExpr is X[Index].
type IndexExpr struct {
	X     Expr
	Index Expr
	node
}

// NewIndexExpr constructs a subscript node.
func NewIndexExpr(x, index Expr, span lexer.Span) *IndexExpr {
	return &IndexExpr{X: x, Index: index, node: node{span}}
}

// SliceExpr is lo:hi:step inside a subscript.
type SliceExpr struct {
	Lo, Hi, Step Expr
	node
}

// NewSliceExpr constructs a slice node.
func NewSliceExpr(lo, hi, step Expr, span lexer.Span) *SliceExpr {
	return &SliceExpr{Lo: lo, Hi: hi, Step: step, node: node{span}}
}

// ListLit is [a, b].
type ListLit struct {
	Elts []Expr
	node
}

// NewListLit constructs a list display node.
func NewListLit(elts []Expr, span lexer.Span) *ListLit {
	return &ListLit{Elts: elts, node: node{span}}
}

// TupleLit is (a, b) or a bare a, b.
type TupleLit struct {
	Elts []Expr
	node
}

// NewTupleLit constructs a tuple display node.
func NewTupleLit(elts []Expr, span lexer.Span) *TupleLit {
	return &TupleLit{Elts: elts, node: node{span}}
}

// SetLit is {a, b}.
type SetLit struct {
	Elts []Expr
	node
}

// NewSetLit constructs a set display node.
func NewSetLit(elts []Expr, span lexer.Span) *SetLit {
	return &SetLit{Elts: elts, node: node{span}}
}

// DictLit is {k: v}.
type DictLit struct {
	Keys   []Expr
	Values []Expr
	node
}

// NewDictLit constructs a dict display node.
func NewDictLit(keys, values []Expr, span lexer.Span) *DictLit {
	return &DictLit{Keys: keys, Values: values, node: node{span}}
}

// StarredExpr is *x outside of a call.
type StarredExpr struct {
	X Expr
	node
}

// NewStarredExpr constructs a starred expression node.
func NewStarredExpr(x Expr, span lexer.Span) *StarredExpr {
	return &StarredExpr{X: x, node: node{span}}
}

// UnsupportedExpr stands for syntax that is recognised but never lowered
// (lambda, yield, await, ...).
type UnsupportedExpr struct {
	Construct string
	node
}

// NewUnsupportedExpr constructs a placeholder for an unsupported expression.
func NewUnsupportedExpr(construct string, span lexer.Span) *UnsupportedExpr {
	return &UnsupportedExpr{Construct: construct, node: node{span}}
}

func (*Ident) exprNode()           {}
func (*IntLit) exprNode()          {}
func (*FloatLit) exprNode()        {}
func (*StringLit) exprNode()       {}
func (*BoolLit) exprNode()         {}
func (*NoneLit) exprNode()         {}
func (*UnaryExpr) exprNode()       {}
func (*BinaryExpr) exprNode()      {}
func (*BoolOpExpr) exprNode()      {}
func (*CompareExpr) exprNode()     {}
func (*CondExpr) exprNode()        {}
func (*CallExpr) exprNode()        {}
func (*AttributeExpr) exprNode()   {}
func (*IndexExpr) exprNode()       {}
func (*SliceExpr) exprNode()       {}
func (*ListLit) exprNode()         {}
func (*TupleLit) exprNode()        {}
func (*SetLit) exprNode()          {}
func (*DictLit) exprNode()         {}
func (*StarredExpr) exprNode()     {}
func (*UnsupportedExpr) exprNode() {}

// ---------------------------------------------------------------------------
// Statements

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	X Expr
	node
}

// NewExprStmt constructs an expression statement node.
func NewExprStmt(x Expr, span lexer.Span) *ExprStmt {
	return &ExprStmt{X: x, node: node{span}}
}

// AssignStmt is t1 = t2 = ... = Value.
type AssignStmt struct {
	Targets []Expr
	Value   Expr
	node
}

// NewAssignStmt constructs an assignment node.
func NewAssignStmt(targets []Expr, value Expr, span lexer.Span) *AssignStmt {
	return &AssignStmt{Targets: targets, Value: value, node: node{span}}
}

// AnnAssignStmt is Target: Annotation [= Value].
type AnnAssignStmt struct {
	Target     Expr
	Annotation Expr
	Value      Expr
	node
}

// NewAnnAssignStmt constructs an annotated assignment node.
func NewAnnAssignStmt(target, annotation, value Expr, span lexer.Span) *AnnAssignStmt {
	return &AnnAssignStmt{Target: target, Annotation: annotation, Value: value, node: node{span}}
}

// AugAssignStmt is Target op= Value; Op is the binary operator.
type AugAssignStmt struct {
	Target Expr
	Op     lexer.TokenType
	Value  Expr
	node
}

// NewAugAssignStmt constructs an augmented assignment node.
func NewAugAssignStmt(target Expr, op lexer.TokenType, value Expr, span lexer.Span) *AugAssignStmt {
	return &AugAssignStmt{Target: target, Op: op, Value: value, node: node{span}}
}

// IfStmt is if/elif/else; an elif chain is a nested IfStmt in Else.
type IfStmt struct {
	Cond Expr
	Body []Stmt
	Else []Stmt
	node
}

// NewIfStmt constructs an if statement node.
func NewIfStmt(cond Expr, body, els []Stmt, span lexer.Span) *IfStmt {
	return &IfStmt{Cond: cond, Body: body, Else: els, node: node{span}}
}

// WhileStmt is while Cond: Body else: Else.
type WhileStmt struct {
	Cond Expr
	Body []Stmt
	Else []Stmt
	node
}

// NewWhileStmt constructs a while statement node.
func NewWhileStmt(cond Expr, body, els []Stmt, span lexer.Span) *WhileStmt {
	return &WhileStmt{Cond: cond, Body: body, Else: els, node: node{span}}
}

// ForStmt is for Target in Iter: Body else: Else.
type ForStmt struct {
	Target Expr
	Iter   Expr
	Body   []Stmt
	Else   []Stmt
	node
}

// NewForStmt constructs a for statement node.
func NewForStmt(target, iter Expr, body, els []Stmt, span lexer.Span) *ForStmt {
	return &ForStmt{Target: target, Iter: iter, Body: body, Else: els, node: node{span}}
}

// BreakStmt is break.
type BreakStmt struct {
	node
}

// ContinueStmt is continue.
type ContinueStmt struct {
	node
}

// PassStmt is pass.
type PassStmt struct {
	node
}

// NewBreakStmt constructs a break statement node.
func NewBreakStmt(span lexer.Span) *BreakStmt { return &BreakStmt{node{span}} }

// NewContinueStmt constructs a continue statement node.
func NewContinueStmt(span lexer.Span) *ContinueStmt { return &ContinueStmt{node{span}} }

// NewPassStmt constructs a pass statement node.
func NewPassStmt(span lexer.Span) *PassStmt { return &PassStmt{node{span}} }

// ReturnStmt is return [Value].
type ReturnStmt struct {
	Value Expr
	node
}

// NewReturnStmt constructs a return statement node.
func NewReturnStmt(value Expr, span lexer.Span) *ReturnStmt {
	return &ReturnStmt{Value: value, node: node{span}}
}

// DelStmt is del t1, t2.
type DelStmt struct {
	Targets []Expr
	node
}

// NewDelStmt constructs a del statement node.
func NewDelStmt(targets []Expr, span lexer.Span) *DelStmt {
	return &DelStmt{Targets: targets, node: node{span}}
}

// GlobalStmt is global a, b.
type GlobalStmt struct {
	Names []*Ident
	node
}

// NewGlobalStmt constructs a global statement node.
func NewGlobalStmt(names []*Ident, span lexer.Span) *GlobalStmt {
	return &GlobalStmt{Names: names, node: node{span}}
}

// ImportAlias is one "name [as alias]" entry. Name is dotted.
type ImportAlias struct {
	Name  string
	Alias *Ident
	node
}

// NewImportAlias constructs an import entry.
func NewImportAlias(name string, alias *Ident, span lexer.Span) *ImportAlias {
	return &ImportAlias{Name: name, Alias: alias, node: node{span}}
}

// ImportStmt is import a.b [as c], d.
type ImportStmt struct {
	Names []*ImportAlias
	node
}

// NewImportStmt constructs an import statement node.
func NewImportStmt(names []*ImportAlias, span lexer.Span) *ImportStmt {
	return &ImportStmt{Names: names, node: node{span}}
}

// FromImportStmt is from Module import a [as b], ...; Level counts leading dots.
type FromImportStmt struct {
	Module string
	Level  int
	Names  []*ImportAlias
	node
}

// NewFromImportStmt constructs a from-import statement node.
func NewFromImportStmt(module string, level int, names []*ImportAlias, span lexer.Span) *FromImportStmt {
	return &FromImportStmt{Module: module, Level: level, Names: names, node: node{span}}
}

// ParamKind distinguishes the parameter forms of a def.
type ParamKind int

const (
	ParamNormal ParamKind = iota
	ParamVarArgs
	ParamKwArgs
	// ParamKwOnlyMarker is a bare "*"; ParamPosOnlyMarker is "/".
	ParamKwOnlyMarker
	ParamPosOnlyMarker
)

// Param is one parameter of a def.
type Param struct {
	Name       *Ident
	Annotation Expr
	Default    Expr
	Kind       ParamKind
	node
}

// NewParam constructs a parameter node.
func NewParam(name *Ident, annotation, def Expr, kind ParamKind, span lexer.Span) *Param {
	return &Param{Name: name, Annotation: annotation, Default: def, Kind: kind, node: node{span}}
}

// FuncDef is a def statement.
type FuncDef struct {
	Name       *Ident
	Params     []*Param
	Returns    Expr
	Body       []Stmt
	Decorators []Expr
	node
}

// NewFuncDef constructs a function definition node.
func NewFuncDef(name *Ident, params []*Param, returns Expr, body []Stmt, decorators []Expr, span lexer.Span) *FuncDef {
	return &FuncDef{Name: name, Params: params, Returns: returns, Body: body, Decorators: decorators, node: node{span}}
}

// ClassDef is a class statement.
type ClassDef struct {
	Name       *Ident
	Bases      []Expr
	Keywords   []*Arg
	Body       []Stmt
	Decorators []Expr
	node
}

// NewClassDef constructs a class definition node.
func NewClassDef(name *Ident, bases []Expr, keywords []*Arg, body []Stmt, decorators []Expr, span lexer.Span) *ClassDef {
	return &ClassDef{Name: name, Bases: bases, Keywords: keywords, Body: body, Decorators: decorators, node: node{span}}
}

// UnsupportedStmt stands for a statement that is parsed only to be
// rejected (try, with, raise, ...). Its block, if any, has been skipped.
type UnsupportedStmt struct {
	Construct string
	node
}

// NewUnsupportedStmt constructs a placeholder for an unsupported statement.
func NewUnsupportedStmt(construct string, span lexer.Span) *UnsupportedStmt {
	return &UnsupportedStmt{Construct: construct, node: node{span}}
}

func (*ExprStmt) stmtNode()        {}
func (*AssignStmt) stmtNode()      {}
func (*AnnAssignStmt) stmtNode()   {}
func (*AugAssignStmt) stmtNode()   {}
func (*IfStmt) stmtNode()          {}
func (*WhileStmt) stmtNode()       {}
func (*ForStmt) stmtNode()         {}
func (*BreakStmt) stmtNode()       {}
func (*ContinueStmt) stmtNode()    {}
func (*PassStmt) stmtNode()        {}
func (*ReturnStmt) stmtNode()      {}
func (*DelStmt) stmtNode()         {}
func (*GlobalStmt) stmtNode()      {}
func (*ImportStmt) stmtNode()      {}
func (*FromImportStmt) stmtNode()  {}
func (*FuncDef) stmtNode()         {}
func (*ClassDef) stmtNode()        {}
func (*UnsupportedStmt) stmtNode() {}
