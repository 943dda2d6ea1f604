// Package config populates typed configuration structs from the process
// environment, optionally seeded from a .env file passed via the -env flag
// (or a ./.env next to the binary). Values already present in the
// environment win over file values.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var (
	envFilePath string
	parseOnce   sync.Once
)

// New fills a T from prefixed environment variables. The prefix is joined
// to each field name by envconfig, so MEMORY plus Path reads MEMORY_PATH.
func New[T any](prefix string) (*T, error) {
	if err := seedFromEnvFile(); err != nil {
		return nil, err
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, fmt.Errorf("process %s environment: %w", prefix, err)
	}
	return &conf, nil
}

// MustNew is New for wiring code, where a bad environment should stop the
// process before it serves anything.
func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// seedFromEnvFile exports .env file contents into the process environment.
// A path given via -env must be readable; the implicit ./.env is optional.
func seedFromEnvFile() error {
	path, required := envFile()
	if !required {
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return nil
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read env file %s: %w", path, err)
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}

// envFile parses the -env flag once. Binaries that register their own flags
// must do so before their first config load.
func envFile() (path string, required bool) {
	parseOnce.Do(func() {
		if flag.Lookup("env") == nil {
			flag.StringVar(&envFilePath, "env", "", "path to .env file")
		}
		if !flag.Parsed() {
			flag.Parse()
		}
	})
	if p := strings.TrimSpace(envFilePath); p != "" {
		return p, true
	}
	return ".env", false
}
