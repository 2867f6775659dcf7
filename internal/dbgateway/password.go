package dbgateway

import "github.com/willibrandon/glance/internal/secretinput"

// ResolvePassword fills cfg.Password following the usual precedence
// (password_command, then PGPASSWORD, then an interactive masked
// prompt) when it isn't already set.
func ResolvePassword(cfg ConnectionConfig, passwordCommand string) (ConnectionConfig, error) {
	if cfg.Password != "" {
		return cfg, nil
	}

	password, err := secretinput.ResolvePassword(passwordCommand)
	if err != nil {
		return cfg, err
	}

	cfg.Password = password
	return cfg, nil
}
