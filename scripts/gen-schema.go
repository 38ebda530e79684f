//go:build ignore

// gen-schema writes the JSON Schema for table schema documents to
// schemas/table-v1.json. Run with `go run scripts/gen-schema.go`.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/schema"
)

const out = "schemas/table-v1.json"

func main() {
	data, err := schema.GenerateJSONSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(out, append(data, '\n'), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote " + out)
}
