package store

import (
	"reflect"
	"strings"
	"unicode"
)

// namespaceOf derives the cache namespace for entity type E.
func namespaceOf[E any]() string {
	t := reflect.TypeOf((*E)(nil)).Elem()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return toSnake(t.Name())
}

// toSnake turns a Go type name into the snake_case namespace a store keys
// its entries under ("ProjectMember" -> "project_member"). Anything that is
// not a letter or digit, such as generic brackets, becomes one underscore.
func toSnake(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			b.WriteByte('_')
			continue
		}
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			acronymEnd := unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || acronymEnd {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}

	parts := strings.FieldsFunc(b.String(), func(r rune) bool { return r == '_' })
	return strings.Join(parts, "_")
}
