// ABOUTME: Help display for the playbook CLI with grouped flags and examples.
// ABOUTME: Provides printHelp for usage output including environment status.
package main

import (
	"fmt"
	"io"
	"os"
)

// printHelp writes a formatted help message to w, including usage patterns,
// grouped flags, examples, and environment status.
func printHelp(w io.Writer, ver string) {
	fmt.Fprintf(w, "playbook %s -- declarative workflow runner for agent playbooks\n", ver)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  playbook <playbook.yaml>              Run a playbook")
	fmt.Fprintln(w, "  playbook -validate <playbook.yaml>    Validate without executing")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Run Flags:")
	fmt.Fprintln(w, "  -set key=value    Seed a state field (repeatable)")
	fmt.Fprintln(w, "  -max-steps <n>    Maximum node executions per run (default: 100)")
	fmt.Fprintln(w, "  -trace <file>     Write execution trace as JSONL")
	fmt.Fprintln(w, "  -script <file>    Scripted provider responses, one per line (no API key needed)")
	fmt.Fprintln(w, "  -db <file>        SQLite database for memorized records")
	fmt.Fprintln(w, "  -model <name>     Model override for default-tier nodes")
	fmt.Fprintln(w, "  -base-url <url>   Custom API base URL for the LLM provider")
	fmt.Fprintln(w, "  -verbose          Verbose output")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Other:")
	fmt.Fprintln(w, "  -validate         Validate playbook without executing")
	fmt.Fprintln(w, "  -version          Print version and exit")
	fmt.Fprintln(w, "  -help             Show this help")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  playbook support_triage.yaml -set user_message='where is my order?'")
	fmt.Fprintln(w, "  playbook -validate support_triage.yaml")
	fmt.Fprintln(w, "  playbook -script responses.txt -trace out.jsonl support_triage.yaml")
	fmt.Fprintln(w)

	if os.Getenv("OPENAI_API_KEY") != "" {
		fmt.Fprintln(w, "Environment: OPENAI_API_KEY is set")
	} else {
		fmt.Fprintln(w, "Environment: OPENAI_API_KEY is not set (scripted runs only)")
	}
}
