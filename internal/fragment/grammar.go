package fragment

import (
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

// The Rust grammar is loaded lazily on first use via sync.Once.
var (
	rustGrammar *sitter.Language
	grammarOnce sync.Once
)

func grammar() *sitter.Language {
	grammarOnce.Do(func() {
		rustGrammar = rust.GetLanguage()
	})
	return rustGrammar
}

// parseTree parses src as a complete Rust source file.
func parseTree(ctx context.Context, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar())
	return parser.ParseCtx(ctx, nil, src)
}
