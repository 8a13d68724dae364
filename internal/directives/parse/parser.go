package parse

import "fmt"

// Parser is a one-token-lookahead recursive-descent parser over the
// directive-file grammar.
type Parser struct {
	toks []Token
	pos  int
}

// Parse tokenizes and parses src into a File.
func Parse(src string) (*File, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	return p.parseFile()
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) atEOF() bool { return p.cur().Kind == TokEOF }

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k TokenKind, what string) (Token, error) {
	if p.cur().Kind != k {
		return Token{}, fmt.Errorf("parse: expected %s at %s, got %q", what, p.cur().Pos(), p.cur())
	}
	return p.advance(), nil
}

func (p *Parser) expectIdent(word string) error {
	if p.cur().Kind != TokIdent || p.cur().Text != word {
		return fmt.Errorf("parse: expected %q at %s, got %q", word, p.cur().Pos(), p.cur())
	}
	p.advance()
	return nil
}

func (p *Parser) parseFile() (*File, error) {
	f := &File{}
	for !p.atEOF() {
		if p.cur().Kind != TokIdent {
			return nil, fmt.Errorf("parse: expected statement keyword at %s, got %q", p.cur().Pos(), p.cur())
		}
		kw := p.cur().Text
		var err error
		switch kw {
		case "import":
			p.advance()
			tok, e := p.expect(TokString, "import path")
			err = e
			if e == nil {
				f.Imports = append(f.Imports, tok.Text)
			}
		case "set":
			p.advance()
			nameTok, e := p.expect(TokIdent, "variable name")
			if e != nil {
				err = e
				break
			}
			if _, e2 := p.expect(TokEquals, "'='"); e2 != nil {
				err = e2
				break
			}
			val, e3 := p.parseLiteralText()
			if e3 != nil {
				err = e3
				break
			}
			f.Sets = append(f.Sets, SetStmt{Name: nameTok.Text, Value: val, Line: nameTok.Line})
		case "seed":
			p.advance()
			tok, e := p.expect(TokString, "seed URL")
			err = e
			if e == nil {
				f.Seeds = append(f.Seeds, tok.Text)
			}
		case "allow":
			p.advance()
			tok, e := p.expect(TokRegex, "allow pattern")
			err = e
			if e == nil {
				f.Allow = append(f.Allow, tok.Text)
			}
		case "disallow":
			p.advance()
			tok, e := p.expect(TokRegex, "disallow pattern")
			err = e
			if e == nil {
				f.Disallow = append(f.Disallow, tok.Text)
			}
		case "frontier":
			p.advance()
			tok, e := p.expect(TokRegex, "frontier pattern")
			err = e
			if e == nil {
				f.Frontier = append(f.Frontier, tok.Text)
			}
		case "use_all_params":
			p.advance()
			f.UseAllParams = true
		case "use_params":
			p.advance()
			names, e := p.parseIdentList()
			err = e
			f.UseParams = append(f.UseParams, names...)
		case "ignore_params":
			p.advance()
			names, e := p.parseIdentList()
			err = e
			f.IgnoreParams = append(f.IgnoreParams, names...)
		case "rule":
			rule, e := p.parseRule()
			err = e
			if e == nil {
				f.Rules = append(f.Rules, rule)
			}
		default:
			err = fmt.Errorf("parse: unknown directive %q at %s", kw, p.cur().Pos())
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (p *Parser) parseLiteralText() (string, error) {
	switch p.cur().Kind {
	case TokString, TokIdent:
		t := p.advance()
		return t.Text, nil
	case TokNumber:
		t := p.advance()
		return t.Text, nil
	default:
		return "", fmt.Errorf("parse: expected literal value at %s, got %q", p.cur().Pos(), p.cur())
	}
}

func (p *Parser) parseIdentList() ([]string, error) {
	var names []string
	tok, err := p.expect(TokIdent, "identifier")
	if err != nil {
		return nil, err
	}
	names = append(names, tok.Text)
	for p.cur().Kind == TokComma {
		p.advance()
		tok, err := p.expect(TokIdent, "identifier")
		if err != nil {
			return nil, err
		}
		names = append(names, tok.Text)
	}
	return names, nil
}

func (p *Parser) parseRule() (RuleDecl, error) {
	line := p.cur().Line
	if err := p.expectIdent("rule"); err != nil {
		return RuleDecl{}, err
	}
	nameTok, err := p.expect(TokIdent, "rule name")
	if err != nil {
		return RuleDecl{}, err
	}
	rule := RuleDecl{Name: nameTok.Text, Line: line}
	if p.cur().Kind == TokIdent && p.cur().Text == "in" {
		p.advance()
		scopeTok, err := p.expect(TokString, "scope selector")
		if err != nil {
			return RuleDecl{}, err
		}
		rule.Scope = scopeTok.Text
	}
	if _, err := p.expect(TokEquals, "'='"); err != nil {
		return RuleDecl{}, err
	}
	if p.cur().Kind == TokBang {
		p.advance()
		rule.Exploding = true
	}
	pipeline, err := p.parsePipeline()
	if err != nil {
		return RuleDecl{}, err
	}
	rule.Pipeline = pipeline
	return rule, nil
}

// parsePipeline parses a `|`-separated sequence of calls, stopping at the
// next `rule`/top-level keyword or EOF.
func (p *Parser) parsePipeline() ([]Call, error) {
	var calls []Call
	call, err := p.parseCall()
	if err != nil {
		return nil, err
	}
	calls = append(calls, call)
	for p.cur().Kind == TokPipe {
		p.advance()
		call, err := p.parseCall()
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, nil
}

func (p *Parser) parseCall() (Call, error) {
	nameTok, err := p.expect(TokIdent, "call name")
	if err != nil {
		return Call{}, err
	}
	call := Call{Name: nameTok.Text, Line: nameTok.Line}
	if _, err := p.expect(TokLParen, "'('"); err != nil {
		return Call{}, err
	}
	if p.cur().Kind != TokRParen {
		for {
			arg, err := p.parseArg()
			if err != nil {
				return Call{}, err
			}
			call.Args = append(call.Args, arg)
			if p.cur().Kind != TokComma {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(TokRParen, "')'"); err != nil {
		return Call{}, err
	}
	return call, nil
}

func (p *Parser) parseArg() (Arg, error) {
	switch p.cur().Kind {
	case TokString:
		t := p.advance()
		return Arg{Kind: ArgString, Str: t.Text}, nil
	case TokNumber:
		t := p.advance()
		return Arg{Kind: ArgNumber, Num: t.Num}, nil
	case TokRegex:
		t := p.advance()
		return Arg{Kind: ArgRegex, Str: t.Text}, nil
	case TokIdent:
		t := p.advance()
		return Arg{Kind: ArgIdent, Str: t.Text}, nil
	case TokLBrace:
		p.advance()
		pipeline, err := p.parsePipeline()
		if err != nil {
			return Arg{}, err
		}
		if _, err := p.expect(TokRBrace, "'}'"); err != nil {
			return Arg{}, err
		}
		return Arg{Kind: ArgPipeline, Pipeline: pipeline}, nil
	default:
		return Arg{}, fmt.Errorf("parse: unexpected argument at %s, got %q", p.cur().Pos(), p.cur())
	}
}
