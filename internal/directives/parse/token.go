// Package parse implements a hand-written lexer and recursive-descent
// parser for directive files (spec.md §4.8, §7). It mirrors the shape of
// lib-lopez/src/directives/parse.rs, parse_common.rs and parse_utils.rs —
// a small combinator-style grammar — but is written as an ordinary Go
// lexer/parser pair rather than a parser-combinator library, since no
// codegen-free combinator or grammar-compiler package appears anywhere in
// the retrieval pack (see DESIGN.md).
package parse

import "fmt"

// TokenKind enumerates the lexical classes of a directive file.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokString
	TokNumber
	TokRegex
	TokLParen
	TokRParen
	TokLBrace
	TokRBrace
	TokComma
	TokPipe
	TokEquals
	TokColon
	TokDot
	TokBang
)

// Token is one lexeme together with its source position, used to produce
// file:line:col diagnostics on a parse error.
type Token struct {
	Kind TokenKind
	Text string
	Num  float64
	Line int
	Col  int
}

func (t Token) String() string {
	switch t.Kind {
	case TokEOF:
		return "<eof>"
	case TokString:
		return fmt.Sprintf("%q", t.Text)
	default:
		return t.Text
	}
}

// Pos renders the token's source location for error messages.
func (t Token) Pos() string { return fmt.Sprintf("%d:%d", t.Line, t.Col) }
