// Package query はHTTPクエリ文字列をストア向けクエリ記述子に変換する。
//
// 変換はフィルタ → ソート → フィールド射影 → ページネーションの4段で構成され、
// 各段は同一のRefinedハンドルを受け渡しながらチェーンする。
// Refinedはストア非依存の記述子であり、SQLへの描画はリポジトリ層が行う。
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/hitoshi/tourbase/internal/model"
)

// 制御キー。フィルタ述語としては扱わない。
const (
	keyPage   = "page"
	keySort   = "sort"
	keyLimit  = "limit"
	keyFields = "fields"
)

// ページネーションのデフォルト値。
// 非数値・ゼロ・負値はエラーにせず黙ってデフォルトへフォールバックする（方針として固定）。
const (
	DefaultPage  = 1
	DefaultLimit = 100
)

// Op は比較演算子を表す。
type Op string

const (
	// OpEq は等価比較。
	OpEq Op = "="
	// OpGte は以上。
	OpGte Op = ">="
	// OpGt はより大きい。
	OpGt Op = ">"
	// OpLte は以下。
	OpLte Op = "<="
	// OpLt はより小さい。
	OpLt Op = "<"
)

// Condition は1つのフィルタ述語を表す。
// Valueは文字列のまま保持し、型変換はストア側のプレースホルダバインドに委ねる。
type Condition struct {
	Field string
	Op    Op
	Value string
}

// SortField はソート指定1件を表す。
type SortField struct {
	Field string
	Desc  bool
}

// Refined はストア向けクエリ記述子。リクエストごとに構築し、実行後に破棄する。
type Refined struct {
	Conditions []Condition
	Sort       []SortField
	Fields     []string // 空の場合は内部カラムを除く全フィールド
	Limit      int
	Offset     int
}

// Allowed はクエリで参照可能な公開フィールド名の集合。
// フィルタ・ソート・射影のすべてのフィールド名はこの集合に対して検証される。
type Allowed map[string]bool

// Builder はRefinedハンドルを包み、変換の各段をチェーンで適用する。
// 段の適用順序 Filter → Sort → LimitFields → Paginate は固定。
type Builder struct {
	raw     url.Values
	allowed Allowed
	refined *Refined
	err     error
}

// NewBuilder はrawクエリとフィールド許可リストからBuilderを生成する。
func NewBuilder(raw url.Values, allowed Allowed) *Builder {
	return &Builder{
		raw:     raw,
		allowed: allowed,
		refined: &Refined{},
	}
}

// Translate は4段の変換をすべて適用したRefinedを返す。
func Translate(raw url.Values, allowed Allowed) (*Refined, error) {
	return NewBuilder(raw, allowed).
		Filter().
		Sort().
		LimitFields().
		Paginate().
		Result()
}

// Result は変換結果のRefinedを返す。いずれかの段で失敗していた場合はエラーを返す。
func (b *Builder) Result() (*Refined, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.refined, nil
}

// Filter は制御キーを除いたクエリをフィルタ述語に変換する。
// キーの形式は field（等価）と field[op]（op ∈ gte, gt, lte, lt）の2種。
// 演算子は完全一致でのみ認識し、他の識別子の部分文字列とは混同しない。
func (b *Builder) Filter() *Builder {
	if b.err != nil {
		return b
	}

	// url.Valuesの反復順序は不定のため、キーを整列して決定的な述語列にする
	keys := make([]string, 0, len(b.raw))
	for k := range b.raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch key {
		case keyPage, keySort, keyLimit, keyFields:
			continue
		}

		field, op, err := parseFilterKey(key)
		if err != nil {
			b.err = err
			return b
		}
		if !b.allowed[field] {
			b.err = model.NewValidationError(fmt.Sprintf("不明なフィルタフィールドです: %s", field))
			return b
		}

		for _, value := range b.raw[key] {
			b.refined.Conditions = append(b.refined.Conditions, Condition{
				Field: field,
				Op:    op,
				Value: value,
			})
		}
	}

	return b
}

// parseFilterKey はクエリキーをフィールド名と比較演算子に分解する。
func parseFilterKey(key string) (string, Op, error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		return key, OpEq, nil
	}
	if !strings.HasSuffix(key, "]") {
		return "", "", model.NewValidationError(fmt.Sprintf("不正なフィルタキーです: %s", key))
	}

	field := key[:open]
	word := key[open+1 : len(key)-1]

	// 演算子は語として完全一致した場合のみ書き換える
	var op Op
	switch word {
	case "gte":
		op = OpGte
	case "gt":
		op = OpGt
	case "lte":
		op = OpLte
	case "lt":
		op = OpLt
	default:
		return "", "", model.NewValidationError(fmt.Sprintf("不明な比較演算子です: %s", word))
	}

	if field == "" {
		return "", "", model.NewValidationError(fmt.Sprintf("不正なフィルタキーです: %s", key))
	}

	return field, op, nil
}

// Sort はsortキーをソート指定列に変換する。
// 例: sort=-price,ratingsAverage → price降順、同値はratingsAverage昇順。
// sortキーが無い場合は作成日時の降順、同値はidの昇順（ページネーションを決定的にするため）。
func (b *Builder) Sort() *Builder {
	if b.err != nil {
		return b
	}

	raw := b.raw.Get(keySort)
	if raw == "" {
		b.refined.Sort = []SortField{
			{Field: "createdAt", Desc: true},
			{Field: "id", Desc: false},
		}
		return b
	}

	for _, spec := range strings.Split(raw, ",") {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}

		desc := false
		if strings.HasPrefix(spec, "-") {
			desc = true
			spec = spec[1:]
		}
		if !b.allowed[spec] {
			b.err = model.NewValidationError(fmt.Sprintf("不明なソートフィールドです: %s", spec))
			return b
		}

		b.refined.Sort = append(b.refined.Sort, SortField{Field: spec, Desc: desc})
	}

	return b
}

// LimitFields はfieldsキーを射影フィールド列に変換する。
// fieldsキーが無い場合はFieldsを空のままにし、内部カラムを除く全フィールドの射影を意味させる。
func (b *Builder) LimitFields() *Builder {
	if b.err != nil {
		return b
	}

	raw := b.raw.Get(keyFields)
	if raw == "" {
		return b
	}

	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if !b.allowed[field] {
			b.err = model.NewValidationError(fmt.Sprintf("不明な射影フィールドです: %s", field))
			return b
		}
		b.refined.Fields = append(b.refined.Fields, field)
	}

	return b
}

// Paginate はpageとlimitをskip/limitに変換する。
// skip = (page-1) * limit。負のskipは発生しない。
func (b *Builder) Paginate() *Builder {
	if b.err != nil {
		return b
	}

	page := positiveIntOrDefault(b.raw.Get(keyPage), DefaultPage)
	limit := positiveIntOrDefault(b.raw.Get(keyLimit), DefaultLimit)

	b.refined.Limit = limit
	b.refined.Offset = (page - 1) * limit

	return b
}

// positiveIntOrDefault はsを正の整数として解釈し、失敗時はデフォルト値を返す。
func positiveIntOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
