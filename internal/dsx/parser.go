// Package dsx parses IBM DataStage .dsx exports: a line-oriented text format
// of nested BEGIN…END blocks with quoted, scalar, and heredoc property
// values. The parser produces a forest of raw records; graph semantics are
// layered on top by the asg package.
package dsx

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
)

// Identifier shapes used for context-sensitive field filtering.
var (
	identRoot  = regexp.MustCompile(`^ROOT$`)
	identView  = regexp.MustCompile(`^V\d+$`)
	identStage = regexp.MustCompile(`^V\d+S\d+(P\d+)?$`)
)

// Options configures a parse run.
type Options struct {
	// Strict promotes recoverable findings (truncated heredocs, mismatched
	// END types) to errors.
	Strict bool

	// Policy overrides the APT preserve set and the per-level omit lists.
	// Nil selects DefaultPolicy().
	Policy *Policy

	// Logger receives warnings in lenient mode. Nil selects slog.Default().
	Logger *slog.Logger
}

// Parser builds a record forest from a DSX token stream.
type Parser struct {
	opts   Options
	policy *Policy
	logger *slog.Logger
}

// NewParser creates a parser with the given options.
func NewParser(opts Options) *Parser {
	p := &Parser{opts: opts, policy: opts.Policy, logger: opts.Logger}
	if p.policy == nil {
		p.policy = DefaultPolicy()
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// ParseFile parses the DSX export at path.
func (p *Parser) ParseFile(path string) (*Forest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Msg: fmt.Sprintf("opening %s: %v", path, err)}
	}
	defer f.Close()

	return p.Parse(f)
}

// Parse consumes r and returns the record forest. Unterminated blocks are
// fatal, except in lenient mode after a heredoc that ran to EOF without its
// terminator: the blocks it left open are then closed at EOF with a warning.
// Other findings are warnings unless Strict is set.
func (p *Parser) Parse(r io.Reader) (*Forest, error) {
	lex := NewLexer(r)
	forest := &Forest{}

	var stack []*Record

	truncated := false

	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		forest.Warnings = append(forest.Warnings, msg)
		p.logger.Warn("dsx parser", slog.String("detail", msg))
	}

	for {
		tok := lex.Next()

		switch tok.Kind {
		case TokenEOF:
			if err := lex.Err(); err != nil {
				return nil, &ParseError{Line: lex.Line(), Msg: fmt.Sprintf("reading input: %v", err)}
			}

			if len(stack) > 0 && truncated && !p.opts.Strict {
				// The heredoc swallowed the END lines of its enclosing blocks.
				warn("line %d: %d block(s) left open by the unterminated heredoc closed at EOF", lex.Line(), len(stack))

				for i := len(stack) - 1; i >= 0; i-- {
					stack[i].LineEnd = lex.Line()
					p.finishRecord(stack[i])

					if i == 0 {
						forest.Roots = append(forest.Roots, stack[i])
					} else if !p.dropRecord(stack[i]) {
						stack[i-1].Subrecords = append(stack[i-1].Subrecords, stack[i])
					}
				}

				stack = nil
			}

			if len(stack) > 0 {
				open := stack[len(stack)-1]
				return nil, &ParseError{
					Line:    lex.Line(),
					Msg:     fmt.Sprintf("unterminated %s block opened at line %d", open.BlockType, open.LineStart),
					Context: lex.Context(),
				}
			}

			return forest, nil

		case TokenBegin:
			// The compiled runtime section carries no design information;
			// everything downstream works off the design records.
			if tok.BlockType == BlockExecJob && len(stack) == 0 {
				return forest, nil
			}

			rec := NewRecord(tok.BlockType)
			rec.LineStart = tok.Line
			stack = append(stack, rec)

		case TokenEnd:
			if len(stack) == 0 {
				if p.opts.Strict {
					return nil, &ParseError{Line: tok.Line, Msg: fmt.Sprintf("END %s without matching BEGIN", tok.BlockType), Context: lex.Context()}
				}

				warn("line %d: END %s without matching BEGIN", tok.Line, tok.BlockType)

				continue
			}

			rec := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			rec.LineEnd = tok.Line

			if tok.BlockType != "" && tok.BlockType != rec.BlockType {
				if p.opts.Strict {
					return nil, &ParseError{
						Line:    tok.Line,
						Msg:     fmt.Sprintf("END %s closes BEGIN %s (line %d)", tok.BlockType, rec.BlockType, rec.LineStart),
						Context: lex.Context(),
					}
				}

				warn("line %d: END %s closes BEGIN %s", tok.Line, tok.BlockType, rec.BlockType)
			}

			p.finishRecord(rec)

			if len(stack) == 0 {
				forest.Roots = append(forest.Roots, rec)
			} else if !p.dropRecord(rec) {
				parent := stack[len(stack)-1]
				parent.Subrecords = append(parent.Subrecords, rec)
			}

		case TokenKeyValue:
			if len(stack) == 0 {
				warn("line %d: property %q outside any block", tok.Line, tok.Key)
				continue
			}

			if tok.Truncated {
				if p.opts.Strict {
					return nil, &ParseError{Line: tok.Line, Msg: fmt.Sprintf("heredoc %q missing terminator", tok.Key), Context: lex.Context()}
				}

				warn("line %d: heredoc %q missing terminator, accepted to EOF", tok.Line, tok.Key)

				truncated = true
			}

			stack[len(stack)-1].Fields[tok.Key] = tok.Val
		}
	}
}

// dropRecord applies the APT filter: engine-owned subrecords are discarded
// unless their Name is on the preserve list.
func (p *Parser) dropRecord(rec *Record) bool {
	if rec.BlockType != BlockSubrecord {
		return false
	}

	if rec.Field("Owner") != "APT" {
		return false
	}

	return !p.policy.PreservesAPT(rec.Field("Name"))
}

// finishRecord applies the context-sensitive omit lists to a completed
// DSRECORD, keyed on its identifier shape.
func (p *Parser) finishRecord(rec *Record) {
	if rec.BlockType != BlockRecord {
		return
	}

	ident := rec.Identifier()

	var list []string

	switch {
	case identRoot.MatchString(ident):
		list = p.policy.OmitRoot
	case identView.MatchString(ident):
		list = p.policy.OmitView
	case identStage.MatchString(ident):
		list = p.policy.OmitStage
	default:
		return
	}

	for field := range rec.Fields {
		if omitted(list, field) {
			delete(rec.Fields, field)
		}
	}
}
