package safety

import (
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Classifier parses SQL with the PostgreSQL grammar and classifies
// its safety level.
type Classifier struct{}

// NewClassifier builds a Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify parses sql and returns its classification. A statement
// that fails to parse is treated as Destructive/Unknown: the
// conservative default when we cannot prove a statement is safe.
func (c *Classifier) Classify(sql string) Result {
	result, err := pg_query.Parse(sql)
	if err != nil {
		return WithWarning(Destructive, StmtUnknown, "Could not parse SQL. Please review carefully.")
	}

	if len(result.Stmts) == 0 {
		return WithWarning(Destructive, StmtUnknown, "Empty SQL statement.")
	}

	if len(result.Stmts) == 1 {
		level, stmtType := classifyRawStmt(result.Stmts[0])
		if level == Destructive {
			return WithWarning(level, stmtType, "This action cannot be undone.")
		}
		return New(level, stmtType)
	}

	maxLevel := Safe
	maxType := StmtUnknown
	for _, stmt := range result.Stmts {
		level, stmtType := classifyRawStmt(stmt)
		if levelPriority(level) > levelPriority(maxLevel) {
			maxLevel = level
			maxType = stmtType
		}
	}

	if maxLevel == Destructive {
		r := WithWarning(maxLevel, StmtMultiple, "This action cannot be undone.")
		r.MultipleInner = maxType
		return r
	}
	r := New(maxLevel, StmtMultiple)
	r.MultipleInner = maxType
	return r
}

// ClassifySQL classifies sql without constructing a Classifier.
func ClassifySQL(sql string) Result {
	return NewClassifier().Classify(sql)
}

func levelPriority(l Level) int {
	switch l {
	case Mutating:
		return 1
	case Destructive:
		return 2
	default:
		return 0
	}
}

func classifyRawStmt(raw *pg_query.RawStmt) (Level, StatementType) {
	if raw.Stmt == nil {
		return Destructive, StmtUnknown
	}
	return classifyNode(raw.Stmt)
}

func classifyNode(node *pg_query.Node) (Level, StatementType) {
	switch {
	case node.GetSelectStmt() != nil:
		return classifySelect(node.GetSelectStmt())

	case node.GetExplainStmt() != nil:
		return classifyExplain(node.GetExplainStmt())

	case node.GetVariableShowStmt() != nil:
		return Safe, StmtShow

	case node.GetInsertStmt() != nil:
		return Mutating, StmtInsert
	case node.GetUpdateStmt() != nil:
		return Mutating, StmtUpdate
	case node.GetMergeStmt() != nil:
		return Mutating, StmtMerge

	case node.GetDeleteStmt() != nil:
		return Destructive, StmtDelete
	case node.GetDropStmt() != nil:
		return Destructive, StmtDrop
	case node.GetTruncateStmt() != nil:
		return Destructive, StmtTruncate
	case node.GetAlterTableStmt() != nil:
		return Destructive, StmtAlter
	case node.GetAlterRoleStmt() != nil:
		return Destructive, StmtAlter
	case node.GetRenameStmt() != nil:
		return Destructive, StmtAlter
	case node.GetCreateStmt() != nil:
		return Destructive, StmtCreate
	case node.GetIndexStmt() != nil:
		return Destructive, StmtCreate
	case node.GetViewStmt() != nil:
		return Destructive, StmtCreate
	case node.GetCreateSchemaStmt() != nil:
		return Destructive, StmtCreate
	case node.GetCreatedbStmt() != nil:
		return Destructive, StmtCreate
	case node.GetCreateFunctionStmt() != nil:
		return Destructive, StmtCreate
	case node.GetCreateSeqStmt() != nil:
		return Destructive, StmtCreate
	case node.GetCompositeTypeStmt() != nil:
		return Destructive, StmtCreate
	case node.GetCreateEnumStmt() != nil:
		return Destructive, StmtCreate
	case node.GetCreateRoleStmt() != nil:
		return Destructive, StmtCreate
	case node.GetGrantStmt() != nil:
		if node.GetGrantStmt().GetIsGrant() {
			return Destructive, StmtGrant
		}
		return Destructive, StmtRevoke

	default:
		// Conservative default: an unrecognized statement is treated
		// as destructive rather than assumed safe.
		return Destructive, StmtUnknown
	}
}

func classifyExplain(explain *pg_query.ExplainStmt) (Level, StatementType) {
	analyze := false
	for _, opt := range explain.GetOptions() {
		if defElem := opt.GetDefElem(); defElem != nil && defElem.Defname == "analyze" {
			analyze = true
			break
		}
	}

	if !analyze {
		// Plain EXPLAIN only shows the plan; it never executes the
		// statement, so it is always safe.
		return Safe, StmtExplain
	}

	// EXPLAIN ANALYZE executes the inner statement, so it inherits
	// that statement's danger level.
	innerLevel, _ := classifyNode(explain.GetQuery())
	return innerLevel, StmtExplain
}

// classifySelect recursively inspects a SELECT for data-modifying
// CTEs, subqueries, and set operations, returning the most dangerous
// level found anywhere inside it.
func classifySelect(sel *pg_query.SelectStmt) (Level, StatementType) {
	maxLevel := Safe
	maxType := StmtSelect

	raise := func(level Level, stmtType StatementType) {
		if levelPriority(level) > levelPriority(maxLevel) {
			maxLevel = level
			maxType = stmtType
		}
	}

	if with := sel.GetWithClause(); with != nil {
		for _, cteNode := range with.GetCtes() {
			cte := cteNode.GetCommonTableExpr()
			if cte == nil || cte.GetCtequery() == nil {
				continue
			}
			level, stmtType := classifyNode(cte.GetCtequery())
			raise(level, stmtType)
		}
	}

	switch sel.GetOp() {
	case pg_query.SetOperation_SETOP_NONE:
		for _, from := range sel.GetFromClause() {
			level, stmtType := classifyFromItem(from)
			raise(level, stmtType)
		}
	default:
		if larg := sel.GetLarg(); larg != nil {
			level, stmtType := classifySelect(larg)
			raise(level, stmtType)
		}
		if rarg := sel.GetRarg(); rarg != nil {
			level, stmtType := classifySelect(rarg)
			raise(level, stmtType)
		}
	}

	return maxLevel, maxType
}

// classifyFromItem inspects one FROM-clause entry for nested
// subqueries or joins that might carry a data-modifying statement.
func classifyFromItem(node *pg_query.Node) (Level, StatementType) {
	switch {
	case node.GetRangeSubselect() != nil:
		sub := node.GetRangeSubselect().GetSubquery()
		if sub == nil {
			return Safe, StmtSelect
		}
		if sel := sub.GetSelectStmt(); sel != nil {
			return classifySelect(sel)
		}
		return classifyNode(sub)

	case node.GetJoinExpr() != nil:
		join := node.GetJoinExpr()
		maxLevel := Safe
		maxType := StmtSelect
		if join.GetLarg() != nil {
			level, stmtType := classifyFromItem(join.GetLarg())
			if levelPriority(level) > levelPriority(maxLevel) {
				maxLevel, maxType = level, stmtType
			}
		}
		if join.GetRarg() != nil {
			level, stmtType := classifyFromItem(join.GetRarg())
			if levelPriority(level) > levelPriority(maxLevel) {
				maxLevel, maxType = level, stmtType
			}
		}
		return maxLevel, maxType

	default:
		// Plain table reference or table function: nothing to recurse
		// into.
		return Safe, StmtSelect
	}
}
