package contract

import (
	"go/ast"
	"go/scanner"
	"go/token"

	"github.com/pkg/errors"
)

// ErrUnknownIdentifier is returned for a directive argument that is neither
// pure nor ret.
var ErrUnknownIdentifier = errors.New("unknown identifier")

// Args are the arguments of a contract directive.
type Args struct {
	// Pure marks the function pure.
	Pure bool
	// Ret binds the return value(s) in a postcondition. Nil means "ret".
	Ret []*ast.Ident
	// Tuple is set when Ret was written in parentheses.
	Tuple bool
}

type argParser struct {
	sc   scanner.Scanner
	errs scanner.ErrorList
	pos  token.Pos
	tok  token.Token
	lit  string
}

func (p *argParser) next() {
	for {
		p.pos, p.tok, p.lit = p.sc.Scan()
		// automatic semicolons
		if p.tok != token.SEMICOLON || p.lit != "\n" {
			return
		}
	}
}

func (p *argParser) expect(tok token.Token) error {
	if p.tok != tok {
		return errors.Errorf("expected %s, found %s", tok, p.describe())
	}
	p.next()
	return nil
}

func (p *argParser) describe() string {
	if p.lit != "" {
		return p.lit
	}
	return p.tok.String()
}

// ParseArgs parses a comma separated directive argument list such as
// "pure, ret = (lo, hi)".
func ParseArgs(text string) (Args, error) {
	var (
		args Args
		p    argParser
		fset = token.NewFileSet()
	)
	file := fset.AddFile("", fset.Base(), len(text))
	p.sc.Init(file, []byte(text), func(pos token.Position, msg string) {
		p.errs.Add(pos, msg)
	}, 0)
	p.next()
	for p.tok != token.EOF {
		if p.tok != token.IDENT {
			return Args{}, errors.Errorf("expected identifier, found %s", p.describe())
		}
		switch p.lit {
		case "pure":
			args.Pure = true
			p.next()
		case "ret":
			p.next()
			if err := p.expect(token.ASSIGN); err != nil {
				return Args{}, err
			}
			ret, tuple, err := p.binder()
			if err != nil {
				return Args{}, err
			}
			args.Ret, args.Tuple = ret, tuple
		default:
			return Args{}, errors.Wrapf(ErrUnknownIdentifier, "%q", p.lit)
		}
		if p.tok == token.EOF {
			break
		}
		if err := p.expect(token.COMMA); err != nil {
			return Args{}, err
		}
	}
	if err := p.errs.Err(); err != nil {
		return Args{}, errors.Wrap(err, "scan")
	}
	return args, nil
}

func (p *argParser) binder() ([]*ast.Ident, bool, error) {
	if p.tok == token.IDENT {
		id := ast.NewIdent(p.lit)
		p.next()
		return []*ast.Ident{id}, false, nil
	}
	if err := p.expect(token.LPAREN); err != nil {
		return nil, false, err
	}
	var ids []*ast.Ident
	for p.tok != token.RPAREN {
		if p.tok != token.IDENT {
			return nil, false, errors.Errorf("expected identifier in ret pattern, found %s", p.describe())
		}
		ids = append(ids, ast.NewIdent(p.lit))
		p.next()
		if p.tok == token.COMMA {
			p.next()
		} else if p.tok != token.RPAREN {
			return nil, false, errors.Errorf("expected , or ) in ret pattern, found %s", p.describe())
		}
	}
	p.next()
	if len(ids) == 0 {
		return nil, false, errors.New("empty ret pattern")
	}
	return ids, true, nil
}
