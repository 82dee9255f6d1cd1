package resolve

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/rust-lang/rls-sub001/internal/core"
	"github.com/rust-lang/rls-sub001/internal/fragment"
)

// SnippetForMatch renders the text inserted when m is completed. Functions
// get a call with one placeholder per argument, self excluded, in the
// `name(${1:arg: ty})` form editors expand.
func (r *Resolver) SnippetForMatch(m core.Match) string {
	if !m.Type.IsFunction() {
		return m.Name
	}
	decl := r.getFunctionDeclaration(m)
	sig, ok := fragment.ParseFnSignature(decl)
	if !ok {
		slog.Debug("cannot parse method declaration", "decl", decl)
		r.s.Metrics().ParseFailure("signature")
		return ""
	}
	return snippet(sig)
}

func snippet(sig fragment.FnSignature) string {
	var b strings.Builder
	b.WriteString(sig.Name)
	b.WriteByte('(')
	i := 0
	for _, arg := range sig.Args {
		if strings.HasSuffix(arg, "self") {
			continue
		}
		if i > 0 {
			b.WriteString(", ")
		}
		i++
		fmt.Fprintf(&b, "${%d:%s}", i, arg)
	}
	b.WriteByte(')')
	return b.String()
}
