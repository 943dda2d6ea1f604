// Package autoload configures the global logger from LOG_* environment
// variables as an import side effect. It reads the environment directly
// instead of going through pkg/config so that importing it never triggers
// flag parsing.
package autoload

import (
	"github.com/kelseyhightower/envconfig"

	logx "github.com/trungdn/milk-sell-agent/pkg/logger"
)

func init() {
	var conf logx.Config
	envconfig.MustProcess("LOG", &conf)
	logx.Init(conf)
}
