// Package sema answers code-completion and go-to-definition queries for
// Rust sources without compiling them.
//
// # Resolution
//
// Queries work directly on source text. A name is resolved by searching
// the scopes enclosing the cursor, the crate root, the std prelude,
// dependency crates and the primitive types, following `use` statements
// and `mod` declarations across files. Expression types are inferred just
// far enough to complete fields and methods: let bindings, function
// return types, struct fields, impl blocks and the `?` operator.
//
// Resolution is fail-open: anything that cannot be understood yields no
// results rather than an error.
//
// # Usage
//
// Create an Engine, then query it with byte offsets or coordinates:
//
//	e, err := sema.New()
//	if err != nil { ... }
//
//	matches := e.CompleteFromFile("src/main.rs", pos)
//	def, ok := e.FindDefinition("src/main.rs", pos)
//
// Each Engine query runs in a fresh Session over the Engine's file cache.
// Open a Session with [Engine.NewSession] to issue several queries against
// one snapshot of the sources; a Session must not be shared between
// goroutines. [Engine.CacheFileContents] substitutes unsaved editor
// buffers for the files on disk.
//
// # Std sources
//
// Completing std items needs the Rust standard library sources, the
// rust-src component. They are located through RUST_SRC_PATH, the rustc
// sysroot or the usual install locations unless [WithRustSrcPath] names
// them.
package sema
