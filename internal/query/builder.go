package query

import (
	"fmt"
	"regexp"
	"strings"
)

// Builder собирает WHERE-условия с плейсхолдерами `?` и привязанными
// значениями, а при рендере нумерует их в $1..$n. Имена колонок никогда
// не берутся из пользовательского ввода напрямую — только через allow-list
// (см. OrderBy и Ident).
type Builder struct {
	conds   []string
	args    []interface{}
	orderBy []string
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Where добавляет условие. Количество `?` во фрагменте должно совпадать
// с количеством значений.
func (b *Builder) Where(frag string, vals ...interface{}) *Builder {
	if strings.Count(frag, "?") != len(vals) {
		panic(fmt.Sprintf("query: fragment %q expects %d args, got %d",
			frag, strings.Count(frag, "?"), len(vals)))
	}
	b.conds = append(b.conds, frag)
	b.args = append(b.args, vals...)
	return b
}

// WhereIn добавляет условие `col IN (...)`. Пустой список значений —
// ошибка вызывающего: пустой scope должен отсекаться до построения SQL.
func (b *Builder) WhereIn(col string, vals ...interface{}) *Builder {
	if len(vals) == 0 {
		panic("query: WhereIn with empty value list")
	}
	placeholders := make([]string, len(vals))
	for i := range vals {
		placeholders[i] = "?"
	}
	b.conds = append(b.conds, fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")))
	b.args = append(b.args, vals...)
	return b
}

var identRe = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

// Ident проверяет, что строка пригодна как имя колонки в SQL-тексте.
func Ident(s string) bool {
	return identRe.MatchString(s)
}

// OrderBy добавляет колонку сортировки. Колонка и направление проверяются,
// недопустимые значения молча отбрасываются.
func (b *Builder) OrderBy(col, dir string) *Builder {
	if !Ident(col) {
		return b
	}
	switch strings.ToUpper(dir) {
	case "ASC", "DESC":
		b.orderBy = append(b.orderBy, col+" "+strings.ToUpper(dir))
	case "":
		b.orderBy = append(b.orderBy, col)
	}
	return b
}

// Build дописывает к базовому запросу WHERE и ORDER BY, заменяя `?`
// на позиционные параметры. Базовый запрос не должен содержать своих `?`.
func (b *Builder) Build(base string) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(base)
	if len(b.conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.conds, " AND "))
	}
	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	return numberPlaceholders(sb.String()), b.args
}

// WhereClause возвращает только WHERE-часть (с ведущим пробелом) для
// запросов с GROUP BY, куда условия нужно вставить до группировки.
// Нумерацию плейсхолдеров в этом случае делает вызывающий через Number.
func (b *Builder) WhereClause() (string, []interface{}) {
	if len(b.conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(b.conds, " AND "), b.args
}

// Args возвращает накопленные значения в порядке добавления.
func (b *Builder) Args() []interface{} {
	return b.args
}

// Number перенумеровывает `?` в готовом запросе в $1..$n.
func Number(sql string) string {
	return numberPlaceholders(sql)
}

func numberPlaceholders(sql string) string {
	var sb strings.Builder
	n := 0
	for _, r := range sql {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ParseList разбирает значение фильтра вида "a,b,c" в срез без пустых
// элементов. Одиночное значение возвращается как срез из одного элемента.
func ParseList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
