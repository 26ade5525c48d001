// Package config reads the server's settings and secrets.
//
// Values come from, in order of precedence: command-line flags, environment
// variables, and an optional dotenv file. Secret values are normalised the
// same way everywhere: surrounding whitespace is trimmed and one layer of
// matching quotes is removed, because hosting dashboards and .env files often
// leave them in.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sakif/mos-mood/internal/apperror"
)

// DefaultEnvFile is loaded when no --config flag is given and the file exists.
const DefaultEnvFile = ".env"

// Reader resolves configuration keys through viper.
type Reader struct {
	v *viper.Viper
}

// NewReader builds a Reader. path is a dotenv file; an empty path means
// DefaultEnvFile if present. flags, when non-nil, are bound so that a flag
// the user set overrides the environment.
func NewReader(path string, flags *pflag.FlagSet) (*Reader, error) {
	v := viper.New()
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	} else if explicit || !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: %w", err)
	}

	if flags != nil {
		for key, flag := range map[string]string{"PORT": "port", "DB_PATH": "db-path"} {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: binding --%s: %w", flag, err)
				}
			}
		}
	}

	return &Reader{v: v}, nil
}

// Clean trims whitespace and strips one layer of matching surrounding quotes.
func Clean(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if first == last && (first == '"' || first == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return value
}

// Lookup returns the first non-empty cleaned value among name and fallbacks,
// or "" when none is set.
func (r *Reader) Lookup(name string, fallbacks ...string) string {
	for _, key := range append([]string{name}, fallbacks...) {
		if value := Clean(r.v.GetString(key)); value != "" {
			return value
		}
	}
	return ""
}

// Secret is Lookup for required values: it fails with a MissingConfiguration
// error naming every candidate key when none is set.
func (r *Reader) Secret(name string, fallbacks ...string) (string, error) {
	if value := r.Lookup(name, fallbacks...); value != "" {
		return value, nil
	}
	return "", apperror.MissingConfiguration(append([]string{name}, fallbacks...)...)
}

// Int returns an integer setting, or def when it is unset.
func (r *Reader) Int(name string, def int) (int, error) {
	raw := r.Lookup(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw) // Atoi = ASCII to Integer
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s value %q", name, raw)
	}
	return n, nil
}

// Bool returns a boolean setting. Only "1", "true", "yes" and "on" are true.
func (r *Reader) Bool(name string) bool {
	switch strings.ToLower(r.Lookup(name)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
