package safety

import "testing"

func assertClassification(t *testing.T, sql string, wantLevel Level, wantType StatementType) {
	t.Helper()
	result := ClassifySQL(sql)
	if result.Level != wantLevel {
		t.Errorf("ClassifySQL(%q).Level = %v, want %v", sql, result.Level, wantLevel)
	}
	if result.StatementType != wantType {
		t.Errorf("ClassifySQL(%q).StatementType = %v, want %v", sql, result.StatementType, wantType)
	}
}

func TestSelectIsSafe(t *testing.T) {
	assertClassification(t, "SELECT * FROM users", Safe, StmtSelect)
}

func TestSelectWithWhereIsSafe(t *testing.T) {
	assertClassification(t, "SELECT id, name FROM users WHERE active = true", Safe, StmtSelect)
}

func TestSelectWithJoinIsSafe(t *testing.T) {
	assertClassification(t, "SELECT u.name, o.total FROM users u JOIN orders o ON u.id = o.user_id", Safe, StmtSelect)
}

func TestSelectWithSubqueryIsSafe(t *testing.T) {
	assertClassification(t, "SELECT * FROM (SELECT * FROM users) AS sub", Safe, StmtSelect)
}

func TestExplainIsSafe(t *testing.T) {
	assertClassification(t, "EXPLAIN SELECT * FROM users", Safe, StmtExplain)
}

func TestExplainAnalyzeIsSafe(t *testing.T) {
	assertClassification(t, "EXPLAIN ANALYZE SELECT * FROM users", Safe, StmtExplain)
}

func TestExplainDeleteWithoutAnalyzeIsSafe(t *testing.T) {
	assertClassification(t, "EXPLAIN DELETE FROM users", Safe, StmtExplain)
}

func TestExplainAnalyzeDeleteIsDestructive(t *testing.T) {
	assertClassification(t, "EXPLAIN ANALYZE DELETE FROM users", Destructive, StmtExplain)
}

func TestExplainAnalyzeUpdateIsMutating(t *testing.T) {
	assertClassification(t, "EXPLAIN ANALYZE UPDATE users SET name = 'x'", Mutating, StmtExplain)
}

func TestExplainAnalyzeInsertIsMutating(t *testing.T) {
	assertClassification(t, "EXPLAIN ANALYZE INSERT INTO users (name) VALUES ('x')", Mutating, StmtExplain)
}

func TestExplainAnalyzeDropIsDestructive(t *testing.T) {
	// DROP is not an explainable statement in the Postgres grammar, so
	// this fails to parse and takes the fail-closed path.
	assertClassification(t, "EXPLAIN ANALYZE DROP TABLE users", Destructive, StmtUnknown)
}

func TestShowIsSafe(t *testing.T) {
	assertClassification(t, "SHOW search_path", Safe, StmtShow)
}

func TestInsertIsMutating(t *testing.T) {
	assertClassification(t, "INSERT INTO users (name) VALUES ('test')", Mutating, StmtInsert)
}

func TestInsertSelectIsMutating(t *testing.T) {
	assertClassification(t, "INSERT INTO archive SELECT * FROM users", Mutating, StmtInsert)
}

func TestUpdateIsMutating(t *testing.T) {
	assertClassification(t, "UPDATE users SET active = false WHERE id = 1", Mutating, StmtUpdate)
}

func TestUpdateAllIsMutating(t *testing.T) {
	assertClassification(t, "UPDATE users SET active = false", Mutating, StmtUpdate)
}

func TestDeleteIsDestructive(t *testing.T) {
	assertClassification(t, "DELETE FROM users WHERE id = 1", Destructive, StmtDelete)
}

func TestDeleteAllIsDestructive(t *testing.T) {
	assertClassification(t, "DELETE FROM users", Destructive, StmtDelete)
}

func TestDropTableIsDestructive(t *testing.T) {
	assertClassification(t, "DROP TABLE users", Destructive, StmtDrop)
}

func TestDropTableIfExistsIsDestructive(t *testing.T) {
	assertClassification(t, "DROP TABLE IF EXISTS users", Destructive, StmtDrop)
}

func TestTruncateIsDestructive(t *testing.T) {
	assertClassification(t, "TRUNCATE TABLE users", Destructive, StmtTruncate)
}

func TestAlterTableIsDestructive(t *testing.T) {
	assertClassification(t, "ALTER TABLE users ADD COLUMN age INT", Destructive, StmtAlter)
}

func TestAlterTableDropColumnIsDestructive(t *testing.T) {
	assertClassification(t, "ALTER TABLE users DROP COLUMN age", Destructive, StmtAlter)
}

func TestCreateTableIsDestructive(t *testing.T) {
	assertClassification(t, "CREATE TABLE t (id INT)", Destructive, StmtCreate)
}

func TestCreateIndexIsDestructive(t *testing.T) {
	assertClassification(t, "CREATE INDEX idx_users_name ON users (name)", Destructive, StmtCreate)
}

func TestGrantIsDestructive(t *testing.T) {
	assertClassification(t, "GRANT SELECT ON users TO readonly", Destructive, StmtGrant)
}

func TestRevokeIsDestructive(t *testing.T) {
	assertClassification(t, "REVOKE SELECT ON users FROM readonly", Destructive, StmtRevoke)
}

func TestCTESelectIsSafe(t *testing.T) {
	assertClassification(t, "WITH recent AS (SELECT * FROM orders) SELECT * FROM recent", Safe, StmtSelect)
}

func TestCTEInsertIsMutating(t *testing.T) {
	result := ClassifySQL("WITH inserted AS (INSERT INTO logs (msg) VALUES ('x') RETURNING id) SELECT * FROM inserted")
	if result.Level != Mutating {
		t.Errorf("Level = %v, want Mutating", result.Level)
	}
}

func TestCTEDeleteIsDestructive(t *testing.T) {
	result := ClassifySQL("WITH deleted AS (DELETE FROM logs WHERE id < 100 RETURNING id) SELECT * FROM deleted")
	if result.Level != Destructive {
		t.Errorf("Level = %v, want Destructive", result.Level)
	}
}

func TestMultiStatementUsesMostDangerous(t *testing.T) {
	result := ClassifySQL("SELECT * FROM users; DELETE FROM logs")
	if result.Level != Destructive {
		t.Errorf("Level = %v, want Destructive", result.Level)
	}
	if result.StatementType != StmtMultiple || result.MultipleInner != StmtDelete {
		t.Errorf("StatementType = %v(%v), want Multiple(Delete)", result.StatementType, result.MultipleInner)
	}
}

func TestMultiStatementSelectInsert(t *testing.T) {
	result := ClassifySQL("SELECT * FROM users; INSERT INTO logs (msg) VALUES ('test')")
	if result.Level != Mutating {
		t.Errorf("Level = %v, want Mutating", result.Level)
	}
	if result.StatementType != StmtMultiple || result.MultipleInner != StmtInsert {
		t.Errorf("StatementType = %v(%v), want Multiple(Insert)", result.StatementType, result.MultipleInner)
	}
}

func TestMultiStatementAllSafe(t *testing.T) {
	result := ClassifySQL("SELECT * FROM users; SELECT COUNT(*) FROM orders")
	if result.Level != Safe {
		t.Errorf("Level = %v, want Safe", result.Level)
	}
}

func TestParseFailureIsDestructive(t *testing.T) {
	result := ClassifySQL("THIS IS NOT VALID SQL AT ALL")
	if result.Level != Destructive || result.StatementType != StmtUnknown {
		t.Errorf("got Level=%v StatementType=%v, want Destructive/Unknown", result.Level, result.StatementType)
	}
	if result.Warning == "" {
		t.Error("expected a warning for unparseable SQL")
	}
}

func TestEmptySQLIsDestructive(t *testing.T) {
	result := ClassifySQL("")
	if result.Level != Destructive {
		t.Errorf("Level = %v, want Destructive", result.Level)
	}
}

func TestDestructiveHasWarning(t *testing.T) {
	result := ClassifySQL("DELETE FROM users")
	if result.Warning == "" || !result.RequiresWarning() {
		t.Error("expected destructive delete to carry a warning")
	}
}

func TestSafeHasNoWarning(t *testing.T) {
	result := ClassifySQL("SELECT * FROM users")
	if result.Warning != "" || result.RequiresWarning() {
		t.Error("expected safe select to carry no warning")
	}
}

func TestMutatingHasNoWarning(t *testing.T) {
	result := ClassifySQL("INSERT INTO users (name) VALUES ('test')")
	if result.Warning != "" || result.RequiresWarning() {
		t.Error("expected mutating insert to carry no warning")
	}
}

func TestSafeNoConfirmation(t *testing.T) {
	if ClassifySQL("SELECT 1").RequiresConfirmation() {
		t.Error("safe statement should not require confirmation")
	}
}

func TestMutatingRequiresConfirmation(t *testing.T) {
	if !ClassifySQL("UPDATE users SET name = 'test'").RequiresConfirmation() {
		t.Error("mutating statement should require confirmation")
	}
}

func TestDestructiveRequiresConfirmation(t *testing.T) {
	if !ClassifySQL("DROP TABLE users").RequiresConfirmation() {
		t.Error("destructive statement should require confirmation")
	}
}
