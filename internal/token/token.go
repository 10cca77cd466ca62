package token

type Type string

type Token struct {
	Type    Type
	Lexeme  string
	Literal string
	Line    int
	Column  int
}

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"
	NEWLINE = "NEWLINE"

	// Identifiers and literals
	IDENT  = "IDENT"
	NUMBER = "NUMBER"
	STRING = "STRING"

	// Operators
	ASSIGN    = "="
	PLUS      = "+"
	MINUS     = "-"
	ASTERISK  = "*"
	SLASH     = "/"
	PERCENT   = "%"
	EQ        = "=="
	NOT_EQ    = "!="
	LT        = "<"
	LTE       = "<="
	GT        = ">"
	GTE       = ">="
	ARROW     = "->"
	FATARROW  = "=>"
	DOT       = "."
	BACKSLASH = "\\"
	PIPE      = "|"

	// Delimiters
	COMMA      = ","
	COLON      = ":"
	LPAREN     = "("
	RPAREN     = ")"
	LBRACE     = "{"
	RBRACE     = "}"
	LBRACKET   = "["
	RBRACKET   = "]"
	DICT_OPEN  = "{:"
	DICT_CLOSE = ":}"

	// Keywords
	VAL      = "VAL"
	MUT      = "MUT"
	FUN      = "FUN"
	RETURN   = "RETURN"
	BREAK    = "BREAK"
	CONTINUE = "CONTINUE"
	IF       = "IF"
	ELSE     = "ELSE"
	FOR      = "FOR"
	IN       = "IN"
	MATCH    = "MATCH"
	STRUCT   = "STRUCT"
	IMPL     = "IMPL"
	IMPORT   = "IMPORT"
	FROM     = "FROM"
	PUB      = "PUB"
	TRUE     = "TRUE"
	FALSE    = "FALSE"
)

var keywords = map[string]Type{
	"val":      VAL,
	"mut":      MUT,
	"fun":      FUN,
	"return":   RETURN,
	"break":    BREAK,
	"continue": CONTINUE,
	"if":       IF,
	"else":     ELSE,
	"for":      FOR,
	"in":       IN,
	"match":    MATCH,
	"struct":   STRUCT,
	"impl":     IMPL,
	"import":   IMPORT,
	"from":     FROM,
	"pub":      PUB,
	"true":     TRUE,
	"false":    FALSE,
}

// LookupIdent maps an identifier lexeme to its keyword type, or IDENT.
func LookupIdent(ident string) Type {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return IDENT
}
