package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/willibrandon/glance/internal/command"
	"github.com/willibrandon/glance/internal/dbgateway"
	"github.com/willibrandon/glance/internal/errs"
	"github.com/willibrandon/glance/internal/llm"
	"github.com/willibrandon/glance/internal/state"
)

// handleConnectionsList formats every saved connection profile for
// display. It never touches the network.
func (c *Core) handleConnectionsList() (InputResult, error) {
	if c.stateDB == nil {
		return messageResult("no state store configured"), nil
	}
	profiles, err := c.stateDB.Connections.List()
	if err != nil {
		return InputResult{}, errs.Wrap(errs.State, "state.connections_list", "failed to list connections", err)
	}
	if len(profiles) == 0 {
		return messageResult("no saved connections"), nil
	}

	var b strings.Builder
	for _, p := range profiles {
		marker := "  "
		if p.Name == c.CurrentConnection() {
			marker = "* "
		}
		fmt.Fprintf(&b, "%s%s (%s@%s/%s)\n", marker, p.Name, p.Username, p.Host, p.Database)
	}
	return messageResult(strings.TrimRight(b.String(), "\n")), nil
}

// handleConnect looks up a saved profile by name and switches to it.
func (c *Core) handleConnect(ctx context.Context, name string) (InputResult, error) {
	if c.stateDB == nil {
		return InputResult{}, errs.New(errs.State, "state.no_store", "no state store configured")
	}
	profile, err := c.stateDB.Connections.Get(name)
	if err != nil {
		return InputResult{}, errs.Wrap(errs.State, "state.connections_get", "failed to look up connection", err)
	}
	if profile == nil {
		return messageResult(fmt.Sprintf("no saved connection named %q", name)), nil
	}

	password, err := c.stateDB.Connections.Password(name)
	if err != nil {
		return InputResult{}, errs.Wrap(errs.Connection, "connection.password", "failed to resolve stored password", err)
	}

	cfg := dbgateway.ConnectionConfig{
		Backend:  dbgateway.ParseBackend(profile.Backend),
		Host:     profile.Host,
		Port:     profile.Port,
		Database: profile.Database,
		User:     profile.Username,
		Password: password,
		SSLMode:  profile.SSLMode,
	}
	return c.SwitchConnection(ctx, profile.Name, cfg)
}

// handleConnectionAdd saves a new connection profile. With --test it
// first connects and disconnects through the Database Gateway and
// saves nothing if that fails; otherwise it doesn't connect, which
// happens on a subsequent /connect.
func (c *Core) handleConnectionAdd(args command.ConnectionAddArgs) (InputResult, error) {
	if c.stateDB == nil {
		return InputResult{}, errs.New(errs.State, "state.no_store", "no state store configured")
	}

	backend := dbgateway.ParseBackend(args.Backend)
	profile := state.ConnectionProfile{
		Name:     args.Name,
		Backend:  backend.String(),
		Database: args.Database,
		Host:     args.Host,
		Port:     args.Port,
		Username: args.User,
		SSLMode:  args.SSLMode,
	}
	if profile.Port == 0 {
		profile.Port = backend.DefaultPort()
	}

	if args.Test {
		gw, err := dbgateway.Connect(context.Background(), dbgateway.ConnectionConfig{
			Backend: backend, Host: profile.Host, Port: profile.Port, Database: profile.Database,
			User: profile.Username, Password: args.Password, SSLMode: profile.SSLMode,
		})
		if err != nil {
			return InputResult{}, errs.FormatConnectionError(err)
		}
		gw.Close()
	}

	if err := c.stateDB.Connections.Create(profile, args.Password); err != nil {
		return InputResult{}, errs.Wrap(errs.State, "state.connections_create", "failed to save connection", err)
	}
	return messageResult(fmt.Sprintf("saved connection %q", args.Name)), nil
}

func (c *Core) handleConnectionEdit(args command.ConnectionEditArgs) (InputResult, error) {
	if c.stateDB == nil {
		return InputResult{}, errs.New(errs.State, "state.no_store", "no state store configured")
	}
	profile, err := c.stateDB.Connections.Get(args.Name)
	if err != nil {
		return InputResult{}, errs.Wrap(errs.State, "state.connections_get", "failed to look up connection", err)
	}
	if profile == nil {
		return messageResult(fmt.Sprintf("no saved connection named %q", args.Name)), nil
	}

	if args.Backend != nil {
		profile.Backend = *args.Backend
	}
	if args.Host != nil {
		profile.Host = *args.Host
	}
	if args.Port != nil {
		profile.Port = *args.Port
	}
	if args.Database != nil {
		profile.Database = *args.Database
	}
	if args.User != nil {
		profile.Username = *args.User
	}
	if args.SSLMode != nil {
		profile.SSLMode = *args.SSLMode
	}

	password := ""
	if args.Password != nil {
		password = *args.Password
	}
	if err := c.stateDB.Connections.Update(*profile, password); err != nil {
		return InputResult{}, errs.Wrap(errs.State, "state.connections_update", "failed to update connection", err)
	}
	return messageResult(fmt.Sprintf("updated connection %q", args.Name)), nil
}

func (c *Core) handleConnectionDelete(name string) (InputResult, error) {
	if c.stateDB == nil {
		return InputResult{}, errs.New(errs.State, "state.no_store", "no state store configured")
	}
	if err := c.stateDB.Connections.Delete(name); err != nil {
		return InputResult{}, errs.Wrap(errs.State, "state.connections_delete", "failed to delete connection", err)
	}
	return messageResult(fmt.Sprintf("deleted connection %q", name)), nil
}

func (c *Core) handleHistory(args command.HistoryArgs) (InputResult, error) {
	if c.stateDB == nil {
		return messageResult("no state store configured"), nil
	}
	filter := state.HistoryFilter{}
	if args.Connection != nil {
		filter.ConnectionName = *args.Connection
	}
	if args.Text != nil {
		filter.TextSearch = *args.Text
	}
	if args.Limit != nil {
		filter.Limit = *args.Limit
	}
	if args.SinceDays != nil {
		filter.SinceDays = *args.SinceDays
	}

	entries, err := c.stateDB.History.List(filter)
	if err != nil {
		return InputResult{}, errs.Wrap(errs.State, "state.history_list", "failed to list history", err)
	}
	if len(entries) == 0 {
		return messageResult("no matching history"), nil
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "[%d] %s %s: %s\n", e.ID, e.CreatedAt, e.Status.String(), e.SQL)
	}
	return messageResult(strings.TrimRight(b.String(), "\n")), nil
}

func (c *Core) handleHistoryClear() (InputResult, error) {
	if c.stateDB == nil {
		return messageResult("no state store configured"), nil
	}
	n, err := c.stateDB.History.Clear()
	if err != nil {
		return InputResult{}, errs.Wrap(errs.State, "state.history_clear", "failed to clear history", err)
	}
	return messageResult(fmt.Sprintf("cleared %d history entries", n)), nil
}

func (c *Core) handleSaveQuery(args command.SaveQueryArgs) (InputResult, error) {
	if c.stateDB == nil {
		return InputResult{}, errs.New(errs.State, "state.no_store", "no state store configured")
	}

	c.mu.Lock()
	history := c.conversation.Messages()
	connName := c.connectionName
	c.mu.Unlock()

	var lastSQL string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == llm.RoleAssistant {
			lastSQL = history[i].Content
			break
		}
	}
	if lastSQL == "" {
		return messageResult("nothing to save yet"), nil
	}

	id, err := c.stateDB.SavedQueries.Create(args.Name, lastSQL, "", connName, args.Tags)
	if err != nil {
		return InputResult{}, errs.Wrap(errs.State, "state.savequery_create", "failed to save query", err)
	}
	return messageResult(fmt.Sprintf("saved query %q (#%d)", args.Name, id)), nil
}

func (c *Core) handleQueriesList(args command.QueriesListArgs) (InputResult, error) {
	if c.stateDB == nil {
		return messageResult("no state store configured"), nil
	}
	filter := state.SavedQueryFilter{IncludeGlobal: true}
	if args.Connection != nil {
		filter.ConnectionName = *args.Connection
	} else if !args.All {
		filter.ConnectionName = c.CurrentConnection()
	}
	if args.Tag != nil {
		filter.Tags = []string{*args.Tag}
	}
	if args.Text != nil {
		filter.TextSearch = *args.Text
	}

	queries, err := c.stateDB.SavedQueries.List(filter)
	if err != nil {
		return InputResult{}, errs.Wrap(errs.State, "state.savedqueries_list", "failed to list saved queries", err)
	}
	if len(queries) == 0 {
		return messageResult("no saved queries"), nil
	}

	var b strings.Builder
	for _, q := range queries {
		fmt.Fprintf(&b, "%s: %s\n", q.Name, q.SQL)
	}
	return messageResult(strings.TrimRight(b.String(), "\n")), nil
}

func (c *Core) handleUseQuery(name string) (InputResult, error) {
	if c.stateDB == nil {
		return InputResult{}, errs.New(errs.State, "state.no_store", "no state store configured")
	}
	q, err := c.stateDB.SavedQueries.GetByName(name, c.CurrentConnection())
	if err != nil {
		return InputResult{}, errs.Wrap(errs.State, "state.savedqueries_get", "failed to look up saved query", err)
	}
	if q == nil {
		return messageResult(fmt.Sprintf("no saved query named %q", name)), nil
	}

	c.stateDB.SavedQueries.RecordUsage(q.ID)
	return c.executeSQL(context.Background(), q.SQL, state.SubmittedByUser, &q.ID)
}

func (c *Core) handleQueryDelete(name string) (InputResult, error) {
	if c.stateDB == nil {
		return InputResult{}, errs.New(errs.State, "state.no_store", "no state store configured")
	}
	if err := c.stateDB.SavedQueries.DeleteByName(name, c.CurrentConnection()); err != nil {
		return InputResult{}, errs.Wrap(errs.State, "state.savedqueries_delete", "failed to delete saved query", err)
	}
	return messageResult(fmt.Sprintf("deleted saved query %q", name)), nil
}

func (c *Core) handleLLMSetting(cmd command.Command) (InputResult, error) {
	if c.stateDB == nil {
		return InputResult{}, errs.New(errs.State, "state.no_store", "no state store configured")
	}

	switch cmd.Kind {
	case command.KindLLMProvider:
		if cmd.SubAction == command.ActionShow {
			settings, err := c.stateDB.LLMSettings.Get()
			if err != nil {
				return InputResult{}, errs.Wrap(errs.State, "state.llm_get", "failed to read LLM settings", err)
			}
			return messageResult(fmt.Sprintf("provider: %s", settings.Provider)), nil
		}
		if err := c.stateDB.LLMSettings.SetProvider(cmd.Value); err != nil {
			return InputResult{}, errs.Wrap(errs.Config, "config.llm_provider", "failed to set provider", err)
		}
		return messageResult(fmt.Sprintf("provider set to %s", cmd.Value)), nil

	case command.KindLLMModel:
		if cmd.SubAction == command.ActionShow {
			settings, err := c.stateDB.LLMSettings.Get()
			if err != nil {
				return InputResult{}, errs.Wrap(errs.State, "state.llm_get", "failed to read LLM settings", err)
			}
			return messageResult(fmt.Sprintf("model: %s", settings.Model)), nil
		}
		if err := c.stateDB.LLMSettings.SetModel(cmd.Value); err != nil {
			return InputResult{}, errs.Wrap(errs.Config, "config.llm_model", "failed to set model", err)
		}
		return messageResult(fmt.Sprintf("model set to %s", cmd.Value)), nil

	case command.KindLLMKey:
		if cmd.SubAction == command.ActionShow {
			return messageResult("API keys are never displayed"), nil
		}
		settings, err := c.stateDB.LLMSettings.Get()
		if err != nil {
			return InputResult{}, errs.Wrap(errs.State, "state.llm_get", "failed to read LLM settings", err)
		}
		if err := c.stateDB.LLMSettings.SetAPIKey(settings.Provider, cmd.Value); err != nil {
			return InputResult{}, errs.Wrap(errs.Config, "config.llm_key", "failed to set API key", err)
		}
		return messageResult(fmt.Sprintf("API key set for %s", settings.Provider)), nil
	}

	return messageResult("unrecognized /llm subcommand"), nil
}

func (c *Core) handleLLMSettingsShow() (InputResult, error) {
	if c.stateDB == nil {
		return messageResult("no state store configured"), nil
	}
	settings, err := c.stateDB.LLMSettings.Get()
	if err != nil {
		return InputResult{}, errs.Wrap(errs.State, "state.llm_get", "failed to read LLM settings", err)
	}
	return messageResult(fmt.Sprintf("provider: %s, model: %s", settings.Provider, settings.Model)), nil
}
