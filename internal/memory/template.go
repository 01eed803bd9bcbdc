package memory

// Render builds the memory document. Both values are inserted verbatim;
// quotes or a bare "---" line in either one end up in the output unchanged.
func Render(description, summary string) string {
	return "---\n" +
		`description: "get the summary of previous step: ` + description + "\"\n" +
		"globs:\n" +
		"alwaysApply: false\n" +
		"---\n" +
		summary
}
