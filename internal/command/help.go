package command

import (
	"fmt"
	"strings"
)

// Category groups commands for display in /help output.
type Category int

const (
	CategoryGeneral Category = iota
	CategoryConnection
	CategoryHistory
	CategoryQueries
	CategoryLLM
)

// DisplayName returns the heading used for this category in /help.
func (c Category) DisplayName() string {
	switch c {
	case CategoryConnection:
		return "Connection commands"
	case CategoryHistory:
		return "History commands"
	case CategoryQueries:
		return "Saved queries"
	case CategoryLLM:
		return "LLM settings"
	default:
		return "General commands"
	}
}

// Def describes one slash command for help text, autocomplete, and
// validation.
type Def struct {
	Name            string
	Aliases         []string
	Description     string
	Usage           string
	RequiresDB      bool
	RequiresStateDB bool
	Category        Category
}

// Commands is the declarative table of every slash command Glance
// recognizes.
var Commands = []Def{
	{Name: "sql", Description: "Execute raw SQL directly", Usage: "/sql <query> [--export <path>.csv]", RequiresDB: true, Category: CategoryGeneral},
	{Name: "clear", Description: "Clear chat history and LLM context", Usage: "/clear", Category: CategoryGeneral},
	{Name: "schema", Description: "Display database schema", Usage: "/schema", RequiresDB: true, Category: CategoryGeneral},
	{Name: "refresh", Description: "Re-introspect database schema", Usage: "/refresh schema", RequiresDB: true, Category: CategoryGeneral},
	{Name: "vim", Description: "No effect: this front end has no vim mode", Usage: "/vim", Category: CategoryGeneral},
	{Name: "debug", Description: "Show recent log warnings and errors", Usage: "/debug [N]", Category: CategoryGeneral},
	{Name: "help", Description: "Show this help message", Usage: "/help", Category: CategoryGeneral},
	{Name: "quit", Aliases: []string{"exit"}, Description: "Exit the application", Usage: "/quit", Category: CategoryGeneral},

	{Name: "connections", Description: "List saved connections", Usage: "/connections", RequiresStateDB: true, Category: CategoryConnection},
	{Name: "connect", Description: "Switch to a saved connection", Usage: "/connect <name>", RequiresStateDB: true, Category: CategoryConnection},
	{Name: "conn", Description: "Manage connections (add/edit/delete)", Usage: `/conn add <name> host=<host> database=<db> [user=<user>] [password="<pwd>"] [--test]`, RequiresStateDB: true, Category: CategoryConnection},

	{Name: "history", Description: "Show query history", Usage: "/history [--conn <name>] [--text <filter>] [--limit N] [--since N]", RequiresStateDB: true, Category: CategoryHistory},

	{Name: "savequery", Description: "Save the last executed query", Usage: "/savequery <name> [#tags...]", RequiresStateDB: true, Category: CategoryQueries},
	{Name: "queries", Description: "List saved queries", Usage: "/queries [--tag <tag>] [--text <filter>] [--all]", RequiresStateDB: true, Category: CategoryQueries},
	{Name: "usequery", Description: "Load a saved query", Usage: "/usequery <name>", RequiresStateDB: true, Category: CategoryQueries},
	{Name: "query", Description: "Manage saved queries", Usage: "/query delete <name>", RequiresStateDB: true, Category: CategoryQueries},

	{Name: "llm", Description: "Manage LLM settings", Usage: "/llm [provider|model|key] [value]", RequiresStateDB: true, Category: CategoryLLM},
}

// FindCommand looks up a command definition by name or alias,
// case-insensitively.
func FindCommand(name string) (Def, bool) {
	lower := strings.ToLower(name)
	for _, c := range Commands {
		if c.Name == lower {
			return c, true
		}
		for _, alias := range c.Aliases {
			if alias == lower {
				return c, true
			}
		}
	}
	return Def{}, false
}

// CommandsRequiringStateDB returns every command that needs the local
// state database open before it can run.
func CommandsRequiringStateDB() []Def {
	var out []Def
	for _, c := range Commands {
		if c.RequiresStateDB {
			out = append(out, c)
		}
	}
	return out
}

// CommandsRequiringDB returns every command that needs a live gateway
// connection before it can run.
func CommandsRequiringDB() []Def {
	var out []Def
	for _, c := range Commands {
		if c.RequiresDB {
			out = append(out, c)
		}
	}
	return out
}

var helpCategories = []Category{CategoryGeneral, CategoryConnection, CategoryHistory, CategoryQueries, CategoryLLM}

// GenerateHelpText renders the full /help body: one block per
// category followed by the keyboard shortcut reference.
func GenerateHelpText() string {
	var b strings.Builder

	for _, category := range helpCategories {
		var inCategory []Def
		for _, c := range Commands {
			if c.Category == category {
				inCategory = append(inCategory, c)
			}
		}
		if len(inCategory) == 0 {
			continue
		}

		fmt.Fprintf(&b, "%s:\n", category.DisplayName())
		for _, c := range inCategory {
			aliases := ""
			for _, a := range c.Aliases {
				aliases += ", /" + a
			}
			fmt.Fprintf(&b, "  /%-12s - %s\n", c.Name+aliases, c.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString(strings.Join([]string{
		"Keyboard shortcuts:",
		"  Ctrl+C          - Exit application",
		"  Enter           - Submit input",
		"  Esc             - Cancel the running request",
		"  Page Up/Down    - Scroll by page",
		"  Ctrl+U/Ctrl+D   - Scroll by half a page",
	}, "\n"))

	return b.String()
}
