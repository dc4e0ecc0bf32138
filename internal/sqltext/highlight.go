package sqltext

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Token classes reported by Highlight.
const (
	ClassKeyword   = "keyword"
	ClassFunction  = "function"
	ClassParen     = "paren"
	ClassSemicolon = "semicolon"
	ClassString    = "string"
	ClassComment   = "comment"
	ClassNumber    = "number"
)

// Keywords are highlighted as keywords, ignoring case.
var Keywords = []string{
	"SELECT", "FROM", "WHERE", "INSERT", "INTO", "VALUES", "UPDATE", "SET", "DELETE",
	"JOIN", "INNER", "LEFT", "RIGHT", "OUTER", "ON", "AS", "AND", "OR", "NOT", "NULL",
	"ORDER", "BY", "GROUP", "HAVING", "LIMIT", "OFFSET", "CREATE", "TABLE", "DROP", "ALTER",
	"ADD", "COLUMN", "CONSTRAINT", "PRIMARY", "KEY", "FOREIGN", "REFERENCES", "DEFAULT",
	"DISTINCT", "UNION", "ALL", "EXISTS", "CASE", "WHEN", "THEN", "ELSE", "END", "BEGIN",
	"COMMIT", "ROLLBACK", "TRANSACTION", "GRANT", "REVOKE", "VIEW", "INDEX", "TRIGGER",
	"PROCEDURE", "FUNCTION", "RETURNS", "LANGUAGE", "DECLARE", "IF", "LOOP", "WHILE",
	"DUAL", "VARCHAR2", "NUMBER", "DATE", "TIMESTAMP", "CLOB", "BLOB", "SYSDATE", "ROWNUM",
	"REPLACE", "TRUNC", "CONNECT", "START", "WITH", "EXEC", "EXECUTE", "ELSIF", "EXCEPTION",
}

// Functions are highlighted as built-in functions, ignoring case.
var Functions = []string{
	"COUNT", "SUM", "AVG", "MIN", "MAX", "COALESCE", "NOW", "SUBSTRING", "LOWER", "UPPER", "LENGTH",
	"NVL", "NVL2", "DECODE", "TO_CHAR", "TO_DATE", "TO_NUMBER", "INSTR", "LPAD", "RPAD", "TRIM",
}

// Span marks one highlighted token. Start and End are rune offsets, End
// exclusive.
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Class string `json:"class"`
}

var (
	tokenRE    = buildTokenRE()
	classNames = tokenRE.SubexpNames()
)

func buildTokenRE() *regexp.Regexp {
	return regexp.MustCompile(`(?i)` +
		`(?P<keyword>\b(?:` + strings.Join(Keywords, "|") + `)\b)` +
		`|(?P<function>\b(?:` + strings.Join(Functions, "|") + `)\b)` +
		`|(?P<paren>[()])` +
		`|(?P<semicolon>;)` +
		`|(?P<string>'(?:[^'\\]|\\.)*')` +
		`|(?P<comment>--[^\n]*|(?s:/\*.*?\*/))` +
		`|(?P<number>\b\d+)`)
}

// Highlight classifies the tokens of text. Text between spans is plain.
func Highlight(text string) []Span {
	matches := tokenRE.FindAllStringSubmatchIndex(text, -1)
	out := make([]Span, 0, len(matches))
	runePos, bytePos := 0, 0
	toRune := func(b int) int {
		runePos += utf8.RuneCountInString(text[bytePos:b])
		bytePos = b
		return runePos
	}
	for _, m := range matches {
		class := ""
		for g := 1; g < len(classNames); g++ {
			if m[2*g] >= 0 {
				class = classNames[g]
				break
			}
		}
		start := toRune(m[0])
		end := toRune(m[1])
		out = append(out, Span{Start: start, End: end, Class: class})
	}
	return out
}
