package repository

import (
	"fmt"
	"strings"

	"github.com/hitoshi/tourbase/internal/query"
)

// sqlMapping は公開フィールド名とテーブル定義の対応を保持する。
// 変換済みクエリのSQL描画はすべてこのマッピングを経由し、
// マッピングに存在しない名前がSQLに混入することはない。
type sqlMapping struct {
	table string

	// columns は公開フィールド名 → カラム名。射影・フィルタ・ソートの許可リストを兼ねる。
	columns map[string]string

	// defaultFields は射影指定が無い場合に選択する公開フィールドの順序列。
	// 内部カラム（パスワードハッシュ等）はここに含めないことで除外する。
	defaultFields []string

	// baseWhere は常に適用する条件（プレースホルダなし）。
	baseWhere []string
}

// queryFields はマッピングから許可フィールド集合を導出する。
func (m *sqlMapping) queryFields() query.Allowed {
	allowed := make(query.Allowed, len(m.columns))
	for name := range m.columns {
		allowed[name] = true
	}
	return allowed
}

// buildSelect は変換済みクエリからSELECT文とバインド引数を構築する。
// 返り値のフィールド列はスキャン時の対応付けに使う公開フィールド名の順序列。
func (m *sqlMapping) buildSelect(refined *query.Refined, extraConds []query.Condition) (string, []any, []string, error) {
	fields := refined.Fields
	if len(fields) == 0 {
		fields = m.defaultFields
	}

	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := m.columns[f]
		if !ok {
			return "", nil, nil, fmt.Errorf("unknown field %q for table %s", f, m.table)
		}
		cols = append(cols, col)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(m.table)

	var args []any
	conds := append([]string{}, m.baseWhere...)

	all := make([]query.Condition, 0, len(refined.Conditions)+len(extraConds))
	all = append(all, refined.Conditions...)
	all = append(all, extraConds...)

	for _, c := range all {
		col, ok := m.columns[c.Field]
		if !ok {
			return "", nil, nil, fmt.Errorf("unknown field %q for table %s", c.Field, m.table)
		}
		args = append(args, c.Value)
		conds = append(conds, fmt.Sprintf("%s %s $%d", col, c.Op, len(args)))
	}

	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	if len(refined.Sort) > 0 {
		orders := make([]string, 0, len(refined.Sort))
		for _, s := range refined.Sort {
			col, ok := m.columns[s.Field]
			if !ok {
				return "", nil, nil, fmt.Errorf("unknown field %q for table %s", s.Field, m.table)
			}
			dir := "ASC"
			if s.Desc {
				dir = "DESC"
			}
			orders = append(orders, col+" "+dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(orders, ", "))
	}

	if refined.Limit > 0 {
		args = append(args, refined.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if refined.Offset > 0 {
		args = append(args, refined.Offset)
		sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	return sb.String(), args, fields, nil
}
