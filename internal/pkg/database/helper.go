package database

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern builds an ILIKE pattern matching q as a literal substring
func ContainsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
