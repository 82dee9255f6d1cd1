package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIMatch is a JSON-friendly completion or definition. Line is 1-based
// and Col 0-based; both are 0 when the position is unknown.
type CLIMatch struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Context string `json:"context,omitempty"`
	Docs    string `json:"docs,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// CLIType is the inferred type of an expression and, when it names a
// declaration, where that is.
type CLIType struct {
	Type        string    `json:"type"`
	Declaration *CLIMatch `json:"declaration,omitempty"`
}

// CLIBatchResult answers one line of batch input.
type CLIBatchResult struct {
	Kind    string     `json:"kind"`
	File    string     `json:"file"`
	Line    int        `json:"line"`
	Col     int        `json:"col"`
	Matches []CLIMatch `json:"matches,omitempty"`
	Type    *CLIType   `json:"type,omitempty"`
	Error   string     `json:"error,omitempty"`
}
