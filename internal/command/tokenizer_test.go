package command

import (
	"reflect"
	"strings"
	"testing"
)

func word(s string) Token       { return Token{Kind: TokWord, Word: s} }
func kv(k, v string) Token      { return Token{Kind: TokKeyValue, Key: k, Value: v} }
func longFlag(s string) Token   { return Token{Kind: TokLongFlag, Word: s} }
func shortFlag(c byte) Token    { return Token{Kind: TokShortFlag, Word: string(c)} }

func assertTokens(t *testing.T, input string, want []Token) {
	t.Helper()
	got := Tokenize(input)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize(%q) = %#v, want %#v", input, got, want)
	}
}

func TestSimpleWords(t *testing.T) {
	assertTokens(t, "hello world", []Token{word("hello"), word("world")})
}

func TestDoubleQuotedString(t *testing.T) {
	assertTokens(t, `name="John Doe"`, []Token{kv("name", "John Doe")})
}

func TestSingleQuotedString(t *testing.T) {
	assertTokens(t, `name='John Doe'`, []Token{kv("name", "John Doe")})
}

func TestEscapedQuotes(t *testing.T) {
	assertTokens(t, `msg="say \"hello\""`, []Token{kv("msg", `say "hello"`)})
}

func TestKeyValueUnquoted(t *testing.T) {
	assertTokens(t, "host=localhost port=5432", []Token{kv("host", "localhost"), kv("port", "5432")})
}

func TestLongFlag(t *testing.T) {
	assertTokens(t, "--test --verbose", []Token{longFlag("test"), longFlag("verbose")})
}

func TestShortFlag(t *testing.T) {
	assertTokens(t, "-t -v", []Token{shortFlag('t'), shortFlag('v')})
}

func TestMixedTokens(t *testing.T) {
	assertTokens(t, "mydb host=localhost --test -v", []Token{
		word("mydb"), kv("host", "localhost"), longFlag("test"), shortFlag('v'),
	})
}

func TestPasswordWithSpaces(t *testing.T) {
	assertTokens(t, `password="my secret password"`, []Token{kv("password", "my secret password")})
}

func TestPasswordWithSpecialChars(t *testing.T) {
	assertTokens(t, `password="p@ss=word!"`, []Token{kv("password", "p@ss=word!")})
}

func TestEmptyValue(t *testing.T) {
	assertTokens(t, "name=", []Token{kv("name", "")})
}

func TestQuotedWordStandalone(t *testing.T) {
	assertTokens(t, `"hello world"`, []Token{word("hello world")})
}

func TestEscapeSequences(t *testing.T) {
	assertTokens(t, `"line1\nline2\ttab"`, []Token{word("line1\nline2\ttab")})
}

func TestConnAddRealistic(t *testing.T) {
	assertTokens(t, `mydb host=localhost port=5432 database=mydb user=postgres password="my secret" --test`, []Token{
		word("mydb"),
		kv("host", "localhost"),
		kv("port", "5432"),
		kv("database", "mydb"),
		kv("user", "postgres"),
		kv("password", "my secret"),
		longFlag("test"),
	})
}

func TestParseErrorDisplay(t *testing.T) {
	err := NewParseError("/conn add", "Missing required argument: name").WithHint("Usage: /conn add <name> host=<host> ...")
	display := err.Error()
	if !strings.Contains(display, "/conn add") || !strings.Contains(display, "Missing required argument") || !strings.Contains(display, "Hint:") {
		t.Errorf("unexpected error display: %q", display)
	}
}

func TestTokenMethods(t *testing.T) {
	w := word("test")
	if s, ok := w.AsWord(); !ok || s != "test" {
		t.Errorf("AsWord() = %q, %v", s, ok)
	}
	if _, _, ok := w.AsKeyValue(); ok {
		t.Error("AsKeyValue() on a word token should fail")
	}

	pair := kv("host", "localhost")
	if k, v, ok := pair.AsKeyValue(); !ok || k != "host" || v != "localhost" {
		t.Errorf("AsKeyValue() = %q, %q, %v", k, v, ok)
	}

	lf := longFlag("test")
	if !lf.IsLongFlag("test") || lf.IsLongFlag("other") {
		t.Error("IsLongFlag behaved unexpectedly")
	}

	sf := shortFlag('t')
	if !sf.IsShortFlag('t') || sf.IsShortFlag('v') {
		t.Error("IsShortFlag behaved unexpectedly")
	}
}
