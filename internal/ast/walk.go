package ast

// Walk traverses the AST starting from node, calling fn for each node.
// If fn returns false, Walk stops traversing that branch.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}

	switch n := node.(type) {
	case *File:
		walkStmts(n.Body, fn)

	case *UnaryExpr:
		Walk(n.X, fn)
	case *BinaryExpr:
		Walk(n.X, fn)
		Walk(n.Y, fn)
	case *BoolOpExpr:
		Walk(n.X, fn)
		Walk(n.Y, fn)
	case *CompareExpr:
		Walk(n.Left, fn)
		walkExprs(n.Comparators, fn)
	case *CondExpr:
		Walk(n.Cond, fn)
		Walk(n.Then, fn)
		Walk(n.Else, fn)
	case *CallExpr:
		Walk(n.Func, fn)
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
	case *Arg:
		Walk(n.Value, fn)
	case *AttributeExpr:
		Walk(n.X, fn)
	case *IndexExpr:
		Walk(n.X, fn)
		Walk(n.Index, fn)
	case *SliceExpr:
		Walk(n.Lo, fn)
		Walk(n.Hi, fn)
		Walk(n.Step, fn)
	case *ListLit:
		walkExprs(n.Elts, fn)
	case *TupleLit:
		walkExprs(n.Elts, fn)
	case *SetLit:
		walkExprs(n.Elts, fn)
	case *DictLit:
		walkExprs(n.Keys, fn)
		walkExprs(n.Values, fn)
	case *StarredExpr:
		Walk(n.X, fn)

	case *ExprStmt:
		Walk(n.X, fn)
	case *AssignStmt:
		walkExprs(n.Targets, fn)
		Walk(n.Value, fn)
	case *AnnAssignStmt:
		Walk(n.Target, fn)
		Walk(n.Annotation, fn)
		Walk(n.Value, fn)
	case *AugAssignStmt:
		Walk(n.Target, fn)
		Walk(n.Value, fn)
	case *IfStmt:
		Walk(n.Cond, fn)
		walkStmts(n.Body, fn)
		walkStmts(n.Else, fn)
	case *WhileStmt:
		Walk(n.Cond, fn)
		walkStmts(n.Body, fn)
		walkStmts(n.Else, fn)
	case *ForStmt:
		Walk(n.Target, fn)
		Walk(n.Iter, fn)
		walkStmts(n.Body, fn)
		walkStmts(n.Else, fn)
	case *ReturnStmt:
		Walk(n.Value, fn)
	case *DelStmt:
		walkExprs(n.Targets, fn)
	case *GlobalStmt:
		for _, name := range n.Names {
			Walk(name, fn)
		}
	case *FuncDef:
		walkExprs(n.Decorators, fn)
		for _, p := range n.Params {
			Walk(p, fn)
		}
		Walk(n.Returns, fn)
		walkStmts(n.Body, fn)
	case *Param:
		Walk(n.Annotation, fn)
		Walk(n.Default, fn)
	case *ClassDef:
		walkExprs(n.Decorators, fn)
		walkExprs(n.Bases, fn)
		walkStmts(n.Body, fn)
	}
}

func walkStmts(stmts []Stmt, fn func(Node) bool) {
	for _, s := range stmts {
		Walk(s, fn)
	}
}

func walkExprs(exprs []Expr, fn func(Node) bool) {
	for _, e := range exprs {
		Walk(e, fn)
	}
}
