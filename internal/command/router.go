package command

import (
	"strconv"
	"strings"
)

// Kind identifies which variant of Command was parsed. Go has no sum
// types, so Command carries every variant's fields and Kind says
// which ones are populated.
type Kind int

const (
	KindNaturalLanguage Kind = iota
	KindSQL
	KindClear
	KindSchema
	KindHelp
	KindQuit
	KindVim
	KindConnectionsList
	KindConnect
	KindConnectionAdd
	KindConnectionEdit
	KindConnectionDelete
	KindHistory
	KindHistoryClear
	KindSaveQuery
	KindQueriesList
	KindUseQuery
	KindQueryDelete
	KindLLMProvider
	KindLLMModel
	KindLLMKey
	KindLLMSettings
	KindRefreshSchema
	KindDebug
	KindUnknown
)

// SubAction distinguishes "show current value" from "set a new
// value" for the /llm provider|model|key subcommands.
type SubAction int

const (
	ActionShow SubAction = iota
	ActionSet
)

// ConnectionAddArgs holds the parsed arguments of "/conn add".
type ConnectionAddArgs struct {
	Name     string
	Backend  string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	Test     bool
}

// ConnectionEditArgs holds the parsed arguments of "/conn edit".
// Pointer-typed fields are nil when the flag was not supplied, so the
// handler can distinguish "leave unchanged" from "clear the value".
type ConnectionEditArgs struct {
	Name     string
	Backend  *string
	Host     *string
	Port     *int
	Database *string
	User     *string
	Password *string
	SSLMode  *string
}

// HistoryArgs holds the parsed arguments of "/history".
type HistoryArgs struct {
	Connection *string
	Text       *string
	Limit      *int64
	SinceDays  *int64
}

// SaveQueryArgs holds the parsed arguments of "/savequery".
type SaveQueryArgs struct {
	Name string
	Tags []string
}

// QueriesListArgs holds the parsed arguments of "/queries".
type QueriesListArgs struct {
	Tag        *string
	Text       *string
	Connection *string
	All        bool
}

// Command is the result of parsing one line of chat-panel input.
type Command struct {
	Kind Kind

	// Payload fields: only the ones relevant to Kind are populated.
	Text           string // SQL, NaturalLanguage, Connect, ConnectionDelete, UseQuery, QueryDelete, Unknown
	ConnectionAdd  ConnectionAddArgs
	ConnectionEdit ConnectionEditArgs
	History        HistoryArgs
	SaveQuery      SaveQueryArgs
	QueriesList    QueriesListArgs
	SubAction      SubAction
	Value          string // the new value when SubAction == ActionSet
	ExportPath     string // set on SQL when a trailing "--export <path>" was recognized
	DebugLines     int    // set on Debug; number of ring-buffer entries to show
}

// Parse turns one line of user input into a Command. Input not
// starting with "/" is natural language destined for the LLM
// gateway; everything else is dispatched by its leading command word.
func Parse(input string) Command {
	input = strings.TrimSpace(input)

	if input == "" {
		return Command{Kind: KindNaturalLanguage, Text: ""}
	}

	if !strings.HasPrefix(input, "/") {
		return Command{Kind: KindNaturalLanguage, Text: input}
	}

	name, rest := splitFirst(input)
	name = strings.ToLower(name)

	switch name {
	case "/sql":
		sql, exportPath := splitExportSuffix(rest)
		return Command{Kind: KindSQL, Text: sql, ExportPath: exportPath}
	case "/debug":
		return parseDebugCommand(rest)
	case "/clear":
		return Command{Kind: KindClear}
	case "/schema":
		return Command{Kind: KindSchema}
	case "/quit", "/exit":
		return Command{Kind: KindQuit}
	case "/vim":
		return Command{Kind: KindVim}
	case "/help":
		return Command{Kind: KindHelp}
	case "/connections":
		return Command{Kind: KindConnectionsList}
	case "/connect":
		return Command{Kind: KindConnect, Text: rest}
	case "/conn":
		return parseConnCommand(rest)
	case "/history":
		return parseHistoryCommand(rest)
	case "/savequery":
		return parseSaveQueryCommand(rest)
	case "/queries":
		return parseQueriesCommand(rest)
	case "/usequery":
		return Command{Kind: KindUseQuery, Text: rest}
	case "/query":
		return parseQueryCommand(rest)
	case "/llm":
		return parseLLMCommand(rest)
	case "/refresh":
		return parseRefreshCommand(rest)
	default:
		return Command{Kind: KindUnknown, Text: name}
	}
}

// splitFirst splits input on its first space, trimming the remainder.
func splitFirst(input string) (first, rest string) {
	if idx := strings.IndexByte(input, ' '); idx >= 0 {
		return input[:idx], strings.TrimSpace(input[idx+1:])
	}
	return input, ""
}

// splitExportSuffix recognizes a trailing "--export <path>" on a
// /sql query, stripping it so the remaining text is plain SQL. SQL
// containing the literal substring is not expected in practice since
// real queries don't end in a bare flag-like suffix.
func splitExportSuffix(args string) (sql, exportPath string) {
	const marker = "--export "
	trimmed := strings.TrimRight(args, " ")
	idx := strings.LastIndex(trimmed, marker)
	if idx < 0 {
		return args, ""
	}
	return strings.TrimSpace(trimmed[:idx]), strings.TrimSpace(trimmed[idx+len(marker):])
}

func parseDebugCommand(args string) Command {
	const defaultLines = 20
	lines := defaultLines
	if fields := strings.Fields(args); len(fields) > 0 {
		if n, err := strconv.Atoi(fields[0]); err == nil && n > 0 {
			lines = n
		}
	}
	return Command{Kind: KindDebug, DebugLines: lines}
}

func parseRefreshCommand(args string) Command {
	var sub string
	if fields := strings.Fields(args); len(fields) > 0 {
		sub = strings.ToLower(fields[0])
	}
	switch sub {
	case "schema", "":
		return Command{Kind: KindRefreshSchema}
	default:
		return Command{Kind: KindUnknown, Text: "/refresh"}
	}
}

func parseConnCommand(args string) Command {
	sub, rest := splitFirst(args)
	sub = strings.ToLower(sub)

	switch sub {
	case "add":
		return parseConnAddArgs(rest)
	case "edit":
		return parseConnEditArgs(rest)
	case "delete":
		return Command{Kind: KindConnectionDelete, Text: rest}
	default:
		if sub != "" && strings.Contains(sub, "=") {
			return parseConnAddArgs(args)
		}
		return Command{Kind: KindUnknown, Text: "/conn"}
	}
}

func parseConnAddArgs(args string) Command {
	result := ConnectionAddArgs{Port: 5432}

	for _, tok := range Tokenize(args) {
		switch {
		case tok.Kind == TokKeyValue:
			switch tok.Key {
			case "backend":
				result.Backend = tok.Value
			case "host":
				result.Host = tok.Value
			case "port":
				if p, err := strconv.Atoi(tok.Value); err == nil {
					result.Port = p
				}
			case "database", "db":
				result.Database = tok.Value
			case "user":
				result.User = tok.Value
			case "password", "pwd":
				result.Password = tok.Value
			case "sslmode":
				result.SSLMode = tok.Value
			}
		case tok.IsLongFlag("test"):
			result.Test = true
		case tok.IsShortFlag('t'):
			result.Test = true
		case tok.Kind == TokWord && result.Name == "":
			result.Name = tok.Word
		}
	}

	return Command{Kind: KindConnectionAdd, ConnectionAdd: result}
}

func parseConnEditArgs(args string) Command {
	result := ConnectionEditArgs{}

	for _, tok := range Tokenize(args) {
		switch {
		case tok.Kind == TokKeyValue:
			value := tok.Value
			switch tok.Key {
			case "backend":
				result.Backend = &value
			case "host":
				result.Host = &value
			case "port":
				if p, err := strconv.Atoi(tok.Value); err == nil {
					result.Port = &p
				}
			case "database", "db":
				result.Database = &value
			case "user":
				result.User = &value
			case "password", "pwd":
				result.Password = &value
			case "sslmode":
				result.SSLMode = &value
			}
		case tok.Kind == TokWord && result.Name == "":
			result.Name = tok.Word
		}
	}

	return Command{Kind: KindConnectionEdit, ConnectionEdit: result}
}

func parseHistoryCommand(args string) Command {
	if strings.TrimSpace(args) == "clear" {
		return Command{Kind: KindHistoryClear}
	}

	var result HistoryArgs
	tokens := Tokenize(args)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		if tok.Kind == TokLongFlag {
			if i+1 < len(tokens) && tokens[i+1].Kind == TokWord {
				val := tokens[i+1].Word
				switch tok.Word {
				case "conn":
					result.Connection = &val
					i++
				case "text":
					result.Text = &val
					i++
				case "limit":
					if n, err := strconv.ParseInt(val, 10, 64); err == nil {
						result.Limit = &n
					}
					i++
				case "since":
					if n, err := strconv.ParseInt(val, 10, 64); err == nil {
						result.SinceDays = &n
					}
					i++
				}
			}
			continue
		}

		if tok.Kind == TokKeyValue {
			value := tok.Value
			switch tok.Key {
			case "conn":
				result.Connection = &value
			case "text":
				result.Text = &value
			case "limit":
				if n, err := strconv.ParseInt(tok.Value, 10, 64); err == nil {
					result.Limit = &n
				}
			case "since":
				if n, err := strconv.ParseInt(tok.Value, 10, 64); err == nil {
					result.SinceDays = &n
				}
			}
		}
	}

	return Command{Kind: KindHistory, History: result}
}

func parseSaveQueryCommand(args string) Command {
	var result SaveQueryArgs
	for _, part := range strings.Fields(args) {
		if strings.HasPrefix(part, "#") {
			result.Tags = append(result.Tags, strings.TrimPrefix(part, "#"))
		} else if result.Name == "" {
			result.Name = part
		}
	}
	return Command{Kind: KindSaveQuery, SaveQuery: result}
}

func parseQueriesCommand(args string) Command {
	var result QueriesListArgs
	tokens := Tokenize(args)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]

		if tok.Kind == TokLongFlag {
			switch tok.Word {
			case "all":
				result.All = true
			case "tag", "text", "conn":
				if i+1 < len(tokens) && tokens[i+1].Kind == TokWord {
					val := tokens[i+1].Word
					switch tok.Word {
					case "tag":
						trimmed := strings.TrimPrefix(val, "#")
						result.Tag = &trimmed
					case "text":
						result.Text = &val
					case "conn":
						result.Connection = &val
					}
					i++
				}
			}
			continue
		}

		if tok.Kind == TokKeyValue {
			value := tok.Value
			switch tok.Key {
			case "tag":
				trimmed := strings.TrimPrefix(value, "#")
				result.Tag = &trimmed
			case "text":
				result.Text = &value
			case "conn":
				result.Connection = &value
			}
		}
	}

	return Command{Kind: KindQueriesList, QueriesList: result}
}

func parseQueryCommand(args string) Command {
	sub, name := splitFirst(args)
	if strings.ToLower(sub) == "delete" {
		return Command{Kind: KindQueryDelete, Text: name}
	}
	return Command{Kind: KindUnknown, Text: "/query"}
}

func parseLLMCommand(args string) Command {
	sub, value := splitFirst(args)
	sub = strings.ToLower(sub)

	switch sub {
	case "provider":
		if value == "" {
			return Command{Kind: KindLLMProvider, SubAction: ActionShow}
		}
		return Command{Kind: KindLLMProvider, SubAction: ActionSet, Value: value}
	case "model":
		if value == "" {
			return Command{Kind: KindLLMModel, SubAction: ActionShow}
		}
		return Command{Kind: KindLLMModel, SubAction: ActionSet, Value: value}
	case "key":
		if value == "" {
			return Command{Kind: KindLLMKey, SubAction: ActionShow}
		}
		return Command{Kind: KindLLMKey, SubAction: ActionSet, Value: value}
	default:
		return Command{Kind: KindLLMSettings}
	}
}
