package contract

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/printer"
	"go/token"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/ast/astutil"
)

// Directive marks a function whose contract blocks are expanded.
const Directive = "//elc:contract"

// Error is an expansion failure of one function.
type Error struct {
	Pos  token.Position
	Func string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg())
}

// Msg is the message without the position.
func (e *Error) Msg() string {
	return fmt.Sprintf("func %s: %v", e.Func, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Cause() error { return e.Err }

// directive returns the directive comment of doc and its argument text.
func directive(doc *ast.CommentGroup) (*ast.Comment, string, bool) {
	if doc == nil {
		return nil, "", false
	}
	for _, c := range doc.List {
		if c.Text == Directive {
			return c, "", true
		}
		if rest, ok := strings.CutPrefix(c.Text, Directive+" "); ok {
			return c, rest, true
		}
	}
	return nil, "", false
}

// expandDecl expands fd if it carries the directive. The returned body is nil
// for functions without it.
func expandDecl(fset *token.FileSet, fd *ast.FuncDecl) (*ast.BlockStmt, *ast.Comment, error) {
	comment, text, ok := directive(fd.Doc)
	if !ok {
		return nil, nil, nil
	}
	args, err := ParseArgs(text)
	if err == nil {
		var body *ast.BlockStmt
		if body, err = Expand(args, fd.Type, fd.Body); err == nil {
			return body, comment, nil
		}
	}
	return nil, nil, &Error{Pos: fset.Position(fd.Pos()), Func: fd.Name.Name, Err: err}
}

// ExpandFile expands every function of file that carries the directive and
// drops the directive, so expanding the result again changes nothing. It
// returns the number of expanded functions. A failure is an *Error.
func ExpandFile(fset *token.FileSet, file *ast.File) (int, error) {
	var (
		n        int
		firstErr error
		dropped  = make(map[*ast.Comment]bool)
	)
	astutil.Apply(file, func(c *astutil.Cursor) bool {
		switch fd := c.Node().(type) {
		case *ast.File:
			return true
		case *ast.FuncDecl:
			if firstErr != nil {
				return false
			}
			body, comment, err := expandDecl(fset, fd)
			if err != nil {
				firstErr = err
				return false
			}
			if body != nil {
				expanded := *fd
				expanded.Body = body
				c.Replace(&expanded)
				dropped[comment] = true
				n++
			}
		}
		return false
	}, nil)
	if firstErr != nil {
		return 0, firstErr
	}
	dropComments(file, dropped)
	return n, nil
}

func isEmptyLine(c *ast.Comment) bool {
	return strings.TrimSpace(c.Text) == "//"
}

// trimDoc removes the dropped comments of a group and the empty "//" lines
// left at its end.
func trimDoc(list []*ast.Comment, dropped map[*ast.Comment]bool) []*ast.Comment {
	var out []*ast.Comment
	for _, c := range list {
		if !dropped[c] {
			out = append(out, c)
		}
	}
	for len(out) > 0 && isEmptyLine(out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

func dropComments(file *ast.File, dropped map[*ast.Comment]bool) {
	if len(dropped) == 0 {
		return
	}
	groups := file.Comments[:0]
	for _, cg := range file.Comments {
		hit := false
		for _, c := range cg.List {
			hit = hit || dropped[c]
		}
		if hit {
			list := trimDoc(cg.List, dropped)
			// Keep the group ending on the line above the declaration. Only
			// line comments are moved, one line each.
			if lineComments(cg.List) {
				slots := make([]token.Pos, len(cg.List))
				for i, c := range cg.List {
					slots[i] = c.Slash
				}
				slots = slots[len(slots)-len(list):]
				for i, c := range list {
					c.Slash = slots[i]
				}
			}
			cg.List = list
		}
		if len(cg.List) > 0 {
			groups = append(groups, cg)
		}
	}
	file.Comments = groups
	for _, decl := range file.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok && fd.Doc != nil && len(fd.Doc.List) == 0 {
			fd.Doc = nil
		}
	}
}

func lineComments(list []*ast.Comment) bool {
	for _, c := range list {
		if !strings.HasPrefix(c.Text, "//") {
			return false
		}
	}
	return true
}

// edit replaces src[start:end] with text.
type edit struct {
	start, end int
	text       string
}

// wholeLines widens [start, end) to the full lines it covers when nothing
// else is on them.
func wholeLines(src []byte, start, end int) (int, int) {
	s := start
	for s > 0 && (src[s-1] == ' ' || src[s-1] == '\t') {
		s--
	}
	e := end
	for e < len(src) && (src[e] == ' ' || src[e] == '\t' || src[e] == '\r') {
		e++
	}
	if (s == 0 || src[s-1] == '\n') && (e == len(src) || src[e] == '\n') {
		if e < len(src) {
			e++
		}
		return s, e
	}
	return start, end
}

// ExpandSource expands src and returns the gofmt-formatted result. Unlike
// printing the tree of ExpandFile, it edits the source text, so comments stay
// next to their statements: the contract blocks move to the top of the body
// together with their own comments and everything else is left in place.
func ExpandSource(filename string, src []byte) ([]byte, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, errors.Wrap(err, "ParseFile")
	}
	off := fset.File(file.Pos()).Offset

	var edits []edit
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		body, comment, err := expandDecl(fset, fd)
		if err != nil {
			return nil, err
		}
		if body == nil {
			continue
		}

		kept := make(map[*ast.Comment]bool)
		for _, c := range trimDoc(fd.Doc.List, map[*ast.Comment]bool{comment: true}) {
			kept[c] = true
		}
		for _, c := range fd.Doc.List {
			if !kept[c] {
				s, e := wholeLines(src, off(c.Pos()), off(c.End()))
				edits = append(edits, edit{start: s, end: e})
			}
		}

		cmap := ast.NewCommentMap(fset, fd.Body, file.Comments)
		var contracts []*ast.LabeledStmt
		for _, stmt := range fd.Body.List {
			if labeled, _, ok := contractBlock(stmt); ok {
				contracts = append(contracts, labeled)
			}
		}
		// two statements per predicate, the purity marker first
		pre := body.List[:len(body.List)-len(fd.Body.List)+len(contracts)]
		var hoisted bytes.Buffer
		if len(pre) > 2*len(contracts) {
			if err := printPredicate(&hoisted, fset, nil, nil, pre[:2]); err != nil {
				return nil, err
			}
			pre = pre[2:]
		}
		for i, labeled := range contracts {
			var groups []*ast.CommentGroup
			for _, cg := range cmap[labeled] {
				if cg.Pos() > fd.Body.Lbrace && cg.End() <= fd.Body.Rbrace {
					groups = append(groups, cg)
				}
			}
			start, end := off(labeled.Pos()), off(labeled.End())
			for _, cg := range groups {
				start = min(start, off(cg.Pos()))
				end = max(end, off(cg.End()))
			}
			s, e := wholeLines(src, start, end)
			edits = append(edits, edit{start: s, end: e})
			if err := printPredicate(&hoisted, fset, file.Comments, groups, pre[2*i:2*i+2]); err != nil {
				return nil, err
			}
		}
		lbrace := off(fd.Body.Lbrace) + 1
		edits = append(edits, edit{start: lbrace, end: lbrace, text: "\n" + strings.TrimSuffix(hoisted.String(), "\n")})
	}

	sort.SliceStable(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
	out := append([]byte(nil), src...)
	for _, ed := range edits {
		out = append(out[:ed.start:ed.start], append([]byte(ed.text), out[ed.end:]...)...)
	}
	res, err := format.Source(out)
	if err != nil {
		return nil, errors.Wrap(err, "format.Source")
	}
	return res, nil
}

// printPredicate writes a declaration and its blank use, one per line. The
// comments inside the contract block come from comments, the groups attached
// around it are written before and after the declaration.
func printPredicate(w *bytes.Buffer, fset *token.FileSet, comments, groups []*ast.CommentGroup, stmts []ast.Stmt) error {
	decl, use := stmts[0], stmts[1]
	var trailing []*ast.CommentGroup
	for _, cg := range groups {
		switch {
		case cg.End() <= decl.Pos():
			for _, c := range cg.List {
				w.WriteString(c.Text)
				w.WriteByte('\n')
			}
		case cg.Pos() >= decl.End():
			trailing = append(trailing, cg)
		}
	}
	var node any = decl
	if len(comments) > 0 {
		node = &printer.CommentedNode{Node: decl, Comments: comments}
	}
	if err := format.Node(w, fset, node); err != nil {
		return errors.Wrap(err, "format.Node")
	}
	for _, cg := range trailing {
		for _, c := range cg.List {
			w.WriteByte(' ')
			w.WriteString(c.Text)
		}
	}
	w.WriteByte('\n')
	if err := format.Node(w, fset, use); err != nil {
		return errors.Wrap(err, "format.Node")
	}
	w.WriteByte('\n')
	return nil
}
