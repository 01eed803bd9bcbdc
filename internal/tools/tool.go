package tools

import "context"

// Result is the payload returned to the caller. Text is a single JSON
// document; IsError marks payloads that carry an "error" key.
type Result struct {
	Text    string
	IsError bool
}

// Annotations are behavioural hints published alongside a tool.
type Annotations struct {
	ReadOnly    bool `json:"readOnlyHint"`
	Destructive bool `json:"destructiveHint"`
	Idempotent  bool `json:"idempotentHint"`
	OpenWorld   bool `json:"openWorldHint"`
}

// Descriptor is what a registry lists for each tool.
type Descriptor struct {
	Name        string
	Title       string
	Description string
	InputSchema map[string]any
	Annotations Annotations
}

// Tool is one named operation. Execute receives the raw JSON arguments and
// reports domain failures through Result; a returned error means the call
// could not be handled at all.
type Tool interface {
	Descriptor() Descriptor
	Execute(ctx context.Context, args string) (Result, error)
}
