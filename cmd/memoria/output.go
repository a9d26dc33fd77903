package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fenwick-labs/memoria/internal/types"
)

// printResult writes v as JSON if jsonOutput is set, otherwise delegates to
// plain, a human-readable renderer for the same value.
func printResult(v any, plain func()) {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			fatalf("encode result: %v", err)
		}
		return
	}
	plain()
}

// fatalf prints an error and exits 1. Under --json it emits a single JSON
// error object instead of a bare message, so scripted callers always get
// parseable output.
func fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if jsonOutput {
		enc := json.NewEncoder(os.Stderr)
		_ = enc.Encode(map[string]string{"error": msg})
	} else {
		fmt.Fprintln(os.Stderr, "Error:", msg)
	}
	os.Exit(1)
}

// fatalErr is fatalf for a single error value, unwrapping *types.Error's
// Kind into the JSON payload when present.
func fatalErr(err error) {
	if e, ok := err.(*types.Error); ok && jsonOutput {
		enc := json.NewEncoder(os.Stderr)
		_ = enc.Encode(map[string]string{"error": e.Message, "kind": string(e.Kind)})
		os.Exit(1)
	}
	fatalf("%v", err)
}
