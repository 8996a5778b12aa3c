package memory

import (
	"fmt"
	"strings"
)

const instructionHeader = "Things you remember about the user:"

// BuildInstruction appends the selected memories as a numbered block to the
// base system instruction. With no memories the base is returned as is.
func BuildInstruction(base string, memories []string) string {
	if len(memories) == 0 {
		return base
	}

	var sb strings.Builder
	if base = strings.TrimSpace(base); base != "" {
		sb.WriteString(base)
		sb.WriteString("\n\n")
	}
	sb.WriteString(instructionHeader)
	sb.WriteString("\n")
	for i, m := range memories {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, m))
	}
	return strings.TrimRight(sb.String(), "\n")
}
