package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	sema "github.com/rust-lang/rls-sub001"
	"github.com/rust-lang/rls-sub001/internal/config"
	"github.com/rust-lang/rls-sub001/internal/core"
)

// --- Commands ---

func (a *app) completeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete FILE LINE COL",
		Short: "List completions for the expression ending at a position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAt(cmd, "complete", args, func(s *sema.Session, file string, c sema.Coordinate) (any, error) {
				return a.matchesToCLI(s, s.CompleteAt(file, c)), nil
			})
		},
	}
}

func (a *app) findDefinitionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find-definition FILE LINE COL",
		Short: "Find the declaration of the identifier at a position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAt(cmd, "find-definition", args, func(s *sema.Session, file string, c sema.Coordinate) (any, error) {
				m, ok := s.DefinitionAt(file, c)
				if !ok {
					return nil, nil
				}
				return a.matchToCLI(s, m), nil
			})
		},
	}
}

func (a *app) typeOfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "type-of FILE LINE COL",
		Short: "Infer the type of the expression at a position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAt(cmd, "type-of", args, func(s *sema.Session, file string, c sema.Coordinate) (any, error) {
				ty, ok := s.TypeAt(file, c)
				if !ok {
					return nil, nil
				}
				return a.typeToCLI(s, ty), nil
			})
		},
	}
}

func (a *app) completeFQNCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete-fqn NAME [FILE]",
		Short: "Complete a fully qualified name such as std::fs::Fi",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := "main.rs"
			if len(args) == 2 {
				file = args[1]
			}
			file, err := resolveFilePath(file)
			if err != nil {
				return a.outputError(cmd, "complete-fqn", err)
			}
			e, err := a.engine()
			if err != nil {
				return a.outputError(cmd, "complete-fqn", err)
			}
			s := e.NewSession()
			return a.outputResult(cmd, CLIResult{
				Command: "complete-fqn",
				Results: a.matchesToCLI(s, s.CompleteFullyQualifiedName(args[0], file)),
			})
		},
	}
}

func (a *app) srcPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "src-path",
		Short: "Print the rust std source path in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				path string
				err  error
			)
			if a.srcPathSet {
				path, err = config.ValidateRustSrcPath(a.rustSrcPath)
			} else {
				path, err = a.cfg.SrcPath()
			}
			if err != nil {
				return a.outputError(cmd, "src-path", err)
			}
			return a.outputResult(cmd, CLIResult{Command: "src-path", Results: path})
		},
	}
}

func (a *app) batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch",
		Short: "Answer queries read from stdin, one per line",
		Long: `Reads lines of the form "KIND FILE LINE COL" from stdin, where KIND is
complete, find-definition or type-of, and answers them in parallel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			queries, err := readQueries(cmd)
			if err != nil {
				return a.outputError(cmd, "batch", err)
			}
			e, err := a.engine()
			if err != nil {
				return a.outputError(cmd, "batch", err)
			}
			s := e.NewSession()
			var out []CLIBatchResult
			for _, r := range e.RunBatch(cmd.Context(), queries) {
				br := CLIBatchResult{
					Kind: string(r.Query.Kind),
					File: r.Query.Path,
					Line: r.Query.At.Row,
					Col:  r.Query.At.Col,
				}
				if r.Err != nil {
					br.Error = r.Err.Error()
				}
				br.Matches = a.matchesToCLI(s, r.Matches)
				if r.Type != nil {
					t := a.typeToCLI(s, r.Type)
					br.Type = &t
				}
				out = append(out, br)
			}
			return a.outputResult(cmd, CLIResult{Command: "batch", Results: out})
		},
	}
}

// --- Helpers ---

// runAt parses FILE LINE COL, opens a session and outputs what query
// returns.
func (a *app) runAt(cmd *cobra.Command, command string, args []string, query func(*sema.Session, string, sema.Coordinate) (any, error)) error {
	file, c, err := parsePosition(args)
	if err != nil {
		return a.outputError(cmd, command, err)
	}
	e, err := a.engine()
	if err != nil {
		return a.outputError(cmd, command, err)
	}
	res, err := query(e.NewSession(), file, c)
	if err != nil {
		return a.outputError(cmd, command, err)
	}
	return a.outputResult(cmd, CLIResult{Command: command, Results: res})
}

func parsePosition(args []string) (string, sema.Coordinate, error) {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return "", sema.Coordinate{}, err
	}
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return "", sema.Coordinate{}, err
	}
	if line == 0 {
		return "", sema.Coordinate{}, fmt.Errorf("invalid line 0: lines start at 1")
	}
	col, err := parseIntArg(args[2], "col")
	if err != nil {
		return "", sema.Coordinate{}, err
	}
	return file, sema.Coordinate{Row: line, Col: col}, nil
}

// readQueries parses batch input, skipping blank lines and # comments.
func readQueries(cmd *cobra.Command) ([]sema.Query, error) {
	var out []sema.Query
	sc := bufio.NewScanner(cmd.InOrStdin())
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("line %d: want KIND FILE LINE COL, got %q", n, line)
		}
		file, c, err := parsePosition(fields[1:])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		out = append(out, sema.Query{Kind: sema.QueryKind(fields[0]), Path: file, At: c})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	return out, nil
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

func (a *app) matchToCLI(s *sema.Session, m sema.Match) CLIMatch {
	out := CLIMatch{
		Name:    m.Name,
		Kind:    m.Type.Kind.String(),
		File:    m.File,
		Context: m.Context,
		Docs:    m.Docs,
	}
	c := m.Coords
	if c == nil && m.File != "" {
		if got, ok := s.ToCoords(m.File, m.Point); ok {
			c = &got
		}
	}
	if c != nil {
		out.Line, out.Col = c.Row, c.Col
	}
	if a.snippets && m.Type.IsFunction() {
		out.Snippet = s.Snippet(m)
	}
	return out
}

func (a *app) matchesToCLI(s *sema.Session, ms []sema.Match) []CLIMatch {
	out := make([]CLIMatch, 0, len(ms))
	for _, m := range ms {
		out = append(out, a.matchToCLI(s, m))
	}
	return out
}

func (a *app) typeToCLI(s *sema.Session, ty sema.Ty) CLIType {
	out := CLIType{Type: ty.String()}
	if m, ok := ty.(core.TyMatch); ok && m.Match.File != "" {
		d := a.matchToCLI(s, m.Match)
		out.Declaration = &d
	}
	return out
}

// outputResult writes a CLIResult to stdout in the selected format.
func (a *app) outputResult(cmd *cobra.Command, result CLIResult) error {
	if a.format == "text" {
		return outputResultText(cmd.OutOrStdout(), result)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func (a *app) outputError(cmd *cobra.Command, command string, err error) error {
	a.errorHandled = true
	if a.format == "text" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}
