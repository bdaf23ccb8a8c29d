package graph

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotReadOnly is returned when a caller-supplied Cypher statement is
// rejected by the read-only gate. It is a policy error, distinguishable
// from upstream driver failures.
var ErrNotReadOnly = errors.New("graph: statement is not read-only")

// Clauses that mutate the graph or the database. Matched as whole words,
// case-insensitively, anywhere in the statement: Cypher allows updating
// clauses after an initial MATCH, so prefix checks are not enough.
var writeClause = regexp.MustCompile(`(?i)\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP|FOREACH)\b|\bLOAD\s+CSV\b`)

// Procedure calls that write despite the statement containing no updating
// clause keywords.
var writeProcedure = regexp.MustCompile(`(?i)\bCALL\s+(db\.create|dbms\.|apoc\.create|apoc\.merge|apoc\.refactor|apoc\.periodic|apoc\.load)`)

// CheckReadOnly validates that a Cypher statement performs no writes.
// It returns ErrNotReadOnly (wrapped with the offending keyword) when the
// statement contains an updating clause or a known writing procedure.
//
// The gate is deliberately conservative: a read-only query that happens to
// mention a write keyword inside a string literal is rejected too. Agents
// can always rephrase; a missed write cannot be undone.
func CheckReadOnly(cypher string) error {
	stmt := strings.TrimSpace(cypher)
	if stmt == "" {
		return fmt.Errorf("%w: empty statement", ErrNotReadOnly)
	}
	if m := writeClause.FindString(stmt); m != "" {
		return fmt.Errorf("%w: contains %s", ErrNotReadOnly, strings.ToUpper(strings.Join(strings.Fields(m), " ")))
	}
	if m := writeProcedure.FindString(stmt); m != "" {
		return fmt.Errorf("%w: calls writing procedure", ErrNotReadOnly)
	}
	return nil
}
