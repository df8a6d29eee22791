package repositories

import (
	"os"
	"strings"
	"testing"
)

// The 23505 mapping in the repositories matches on constraint names, so
// those names must stay in lockstep with the schema migration.
func TestConstraintNamesMatchMigration(t *testing.T) {
	sql, err := os.ReadFile("../db/migrations/0001_core_tables.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	migration := string(sql)

	for _, name := range []string{
		pendingKeyConstraint,
		recordSessionUserConstraint,
		recordChallengeConstraint,
	} {
		if !strings.Contains(migration, name) {
			t.Errorf("constraint %q not declared in 0001_core_tables.up.sql", name)
		}
	}
}

// The consume statement is the single-winner CAS; its predicates must
// cover both the consumed flag and the expiry.
func TestChallengeConsumePredicates(t *testing.T) {
	for _, want := range []string{"consumed_at IS NULL", "expires_at > NOW()"} {
		if !strings.Contains(challengeConsumeSQL, want) {
			t.Errorf("consume statement missing predicate %q:\n%s", want, challengeConsumeSQL)
		}
	}
}
