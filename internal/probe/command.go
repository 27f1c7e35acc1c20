package probe

import (
	"fmt"
	"os"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// SplitCommand parses a single simple shell command line into its argument
// vector. Quotes are honoured and $VAR / ${VAR} are expanded from env (or
// the process environment when env is nil). Pipelines, lists, redirections
// and command substitutions are rejected: probes execute the command
// directly, without a shell.
func SplitCommand(line string, env func(string) string) ([]string, error) {
	if env == nil {
		env = os.Getenv
	}

	parser := syntax.NewParser(
		syntax.Variant(syntax.LangPOSIX),
		syntax.KeepComments(false),
	)
	file, err := parser.Parse(strings.NewReader(line), "")
	if err != nil {
		return nil, fmt.Errorf("failed to parse command %q: %w", line, err)
	}
	if len(file.Stmts) != 1 {
		return nil, fmt.Errorf("command %q must be exactly one simple command", line)
	}
	stmt := file.Stmts[0]
	if len(stmt.Redirs) > 0 || stmt.Background || stmt.Negated {
		return nil, fmt.Errorf("command %q must not use redirections or job control", line)
	}
	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok || len(call.Args) == 0 {
		return nil, fmt.Errorf("command %q must be exactly one simple command", line)
	}
	if len(call.Assigns) > 0 {
		return nil, fmt.Errorf("command %q must not assign variables", line)
	}

	argv := make([]string, 0, len(call.Args))
	for _, word := range call.Args {
		s, err := wordToString(word, env)
		if err != nil {
			return nil, fmt.Errorf("command %q: %w", line, err)
		}
		argv = append(argv, s)
	}
	return argv, nil
}

// wordToString flattens a syntax.Word into a literal string.
func wordToString(word *syntax.Word, env func(string) string) (string, error) {
	var sb strings.Builder
	if err := writeParts(&sb, word.Parts, env); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeParts(sb *strings.Builder, parts []syntax.WordPart, env func(string) string) error {
	for _, part := range parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			if err := writeParts(sb, p.Parts, env); err != nil {
				return err
			}
		case *syntax.ParamExp:
			if p.Exp != nil || p.Repl != nil || p.Slice != nil || p.Index != nil || p.Length {
				return fmt.Errorf("unsupported parameter expansion ${%s...}", p.Param.Value)
			}
			sb.WriteString(env(p.Param.Value))
		default:
			return fmt.Errorf("unsupported shell construct %T", part)
		}
	}
	return nil
}
