package agent

import (
	"regexp"
	"strings"
)

// sqlStartPattern locates the first SQL-shaped token in model output.
var sqlStartPattern = regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|WITH|CREATE|ALTER|DROP|TRUNCATE|EXPLAIN)\b`)

// ExtractSQL pulls the SQL statement out of raw model output. Markdown
// fences are stripped and any leading prose before the first SQL keyword
// is discarded. Returns ErrNoSQLGenerated when the output contains no
// SQL-shaped content.
func ExtractSQL(output string) (string, error) {
	trimmed := stripMarkdownFences(output)

	loc := sqlStartPattern.FindStringIndex(trimmed)
	if loc == nil {
		return "", ErrNoSQLGenerated
	}

	statement := strings.TrimSpace(trimmed[loc[0]:])
	if statement == "" {
		return "", ErrNoSQLGenerated
	}
	return statement, nil
}

func stripMarkdownFences(value string) string {
	trimmed := strings.TrimSpace(value)
	if start := strings.Index(trimmed, "```"); start >= 0 {
		trimmed = trimmed[start:]
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if end := strings.Index(trimmed, "```"); end >= 0 {
			trimmed = trimmed[:end]
		}
	}
	return strings.TrimSpace(trimmed)
}
