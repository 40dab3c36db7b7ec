// Package contract rewrites labeled contract blocks of Go functions into
// auxiliary predicates that the type checker sees as ordinary code.
//
// A function opts in with a directive in its doc comment:
//
//	//elc:contract pure, ret = (lo, hi)
//	func span(xs []int) (int, int) {
//		requires: {
//			len(xs) > 0
//		}
//		ensures: {
//			lo <= hi
//		}
//		...
//	}
//
// Every top-level block labeled requires becomes
//
//	var __elc_requires = func(xs []int) bool { return len(xs) > 0 }
//	_ = __elc_requires
//
// and every block labeled ensures becomes the same with the return binder
// appended to the parameters. A block whose last statement is a bare
// expression returns that expression.
package contract

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"

	"github.com/pkg/errors"
)

const (
	RequiresLabel = "requires"
	EnsuresLabel  = "ensures"

	RequiresName = "__elc_requires"
	EnsuresName  = "__elc_ensures"
	PureName     = "__elc_pure"

	defaultRet = "ret"
)

// Expand returns a new body for a function with signature sig in which the
// contract blocks of body are replaced by predicates. The synthesized
// declarations come first, followed by the remaining statements in order.
// body itself is not modified.
func Expand(args Args, sig *ast.FuncType, body *ast.BlockStmt) (*ast.BlockStmt, error) {
	if body == nil {
		return nil, errors.New("function has no body")
	}
	var pre, rest []ast.Stmt
	if args.Pure {
		// positioned on the opening brace so that it prints on one line
		pos := body.Lbrace
		marker := &ast.FuncType{Func: pos, Params: &ast.FieldList{Opening: pos, Closing: pos}}
		pre = append(pre, predicate(PureName, marker, &ast.BlockStmt{Lbrace: pos, Rbrace: pos}, pos)...)
	}
	for _, stmt := range body.List {
		labeled, block, ok := contractBlock(stmt)
		if !ok {
			rest = append(rest, stmt)
			continue
		}
		var (
			name   string
			params *ast.FieldList
			err    error
		)
		switch labeled.Label.Name {
		case RequiresLabel:
			name = RequiresName
			params, err = cloneParams(sig.Params, false)
		case EnsuresLabel:
			name = EnsuresName
			params, err = ensuresParams(args, sig)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "%s block", labeled.Label.Name)
		}
		ft := &ast.FuncType{
			Func:    labeled.Pos(),
			Params:  params,
			Results: &ast.FieldList{List: []*ast.Field{{Type: ast.NewIdent("bool")}}},
		}
		pre = append(pre, predicate(name, ft, tailReturn(block), labeled.Pos())...)
	}
	return &ast.BlockStmt{
		Lbrace: body.Lbrace,
		List:   append(pre, rest...),
		Rbrace: body.Rbrace,
	}, nil
}

// contractBlock reports whether stmt is a block labeled requires or ensures.
func contractBlock(stmt ast.Stmt) (*ast.LabeledStmt, *ast.BlockStmt, bool) {
	labeled, ok := stmt.(*ast.LabeledStmt)
	if !ok {
		return nil, nil, false
	}
	block, ok := labeled.Stmt.(*ast.BlockStmt)
	if !ok {
		return nil, nil, false
	}
	switch labeled.Label.Name {
	case RequiresLabel, EnsuresLabel:
		return labeled, block, true
	}
	return nil, nil, false
}

// predicate declares name as a function literal and marks it used.
func predicate(name string, ft *ast.FuncType, body *ast.BlockStmt, pos token.Pos) []ast.Stmt {
	decl := &ast.DeclStmt{Decl: &ast.GenDecl{
		TokPos: pos,
		Tok:    token.VAR,
		Specs: []ast.Spec{&ast.ValueSpec{
			Names:  []*ast.Ident{{NamePos: pos, Name: name}},
			Values: []ast.Expr{&ast.FuncLit{Type: ft, Body: body}},
		}},
	}}
	use := &ast.AssignStmt{
		Lhs: []ast.Expr{ast.NewIdent("_")},
		Tok: token.ASSIGN,
		Rhs: []ast.Expr{ast.NewIdent(name)},
	}
	return []ast.Stmt{decl, use}
}

func tailReturn(block *ast.BlockStmt) *ast.BlockStmt {
	out := *block
	n := len(block.List)
	if n == 0 {
		return &out
	}
	tail, ok := block.List[n-1].(*ast.ExprStmt)
	if !ok {
		return &out
	}
	out.List = make([]ast.Stmt, n)
	copy(out.List, block.List)
	out.List[n-1] = &ast.ReturnStmt{Return: tail.Pos(), Results: []ast.Expr{tail.X}}
	return &out
}

func ensuresParams(args Args, sig *ast.FuncType) (*ast.FieldList, error) {
	results := resultTypes(sig.Results)
	if len(results) == 0 {
		return cloneParams(sig.Params, false)
	}
	names, err := binderNames(args, len(results))
	if err != nil {
		return nil, err
	}
	params, err := cloneParams(sig.Params, true)
	if err != nil {
		return nil, err
	}
	for i, typ := range results {
		t, err := cloneType(typ)
		if err != nil {
			return nil, err
		}
		params.List = append(params.List, &ast.Field{
			Names: []*ast.Ident{ast.NewIdent(names[i])},
			Type:  t,
		})
	}
	return params, nil
}

func binderNames(args Args, n int) ([]string, error) {
	if args.Tuple {
		if len(args.Ret) != n {
			return nil, errors.Errorf("ret pattern binds %d values, function returns %d", len(args.Ret), n)
		}
		names := make([]string, n)
		for i, id := range args.Ret {
			names[i] = id.Name
		}
		return names, nil
	}
	base := defaultRet
	if len(args.Ret) == 1 {
		base = args.Ret[0].Name
	}
	if n == 1 {
		return []string{base}, nil
	}
	names := make([]string, n)
	for i := range names {
		if base == "_" {
			names[i] = base
		} else {
			names[i] = fmt.Sprintf("%s%d", base, i)
		}
	}
	return names, nil
}

func resultTypes(results *ast.FieldList) []ast.Expr {
	if results == nil {
		return nil
	}
	var list []ast.Expr
	for _, f := range results.List {
		n := len(f.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			list = append(list, f.Type)
		}
	}
	return list
}

// cloneParams copies a parameter list with fresh nodes so the predicate does
// not share identifiers with the enclosing function. With appending set the
// list is prepared for extra named parameters: unnamed parameters become _ and
// a variadic parameter becomes a slice.
func cloneParams(params *ast.FieldList, appending bool) (*ast.FieldList, error) {
	out := &ast.FieldList{}
	if params == nil {
		return out, nil
	}
	for _, f := range params.List {
		var names []*ast.Ident
		for _, id := range f.Names {
			names = append(names, ast.NewIdent(id.Name))
		}
		if appending && len(names) == 0 {
			names = []*ast.Ident{ast.NewIdent("_")}
		}
		typ, err := cloneType(f.Type)
		if err != nil {
			return nil, err
		}
		if e, ok := typ.(*ast.Ellipsis); ok && appending {
			typ = &ast.ArrayType{Elt: e.Elt}
		}
		out.List = append(out.List, &ast.Field{Names: names, Type: typ})
	}
	return out, nil
}

func cloneType(x ast.Expr) (ast.Expr, error) {
	if e, ok := x.(*ast.Ellipsis); ok {
		elt, err := cloneType(e.Elt)
		if err != nil {
			return nil, err
		}
		return &ast.Ellipsis{Elt: elt}, nil
	}
	src := types.ExprString(x)
	clone, err := parser.ParseExpr(src)
	if err != nil {
		return nil, errors.Wrapf(err, "copy type %s", src)
	}
	return clone, nil
}
