// Package autoload configures the global logger from LOG_* variables on import.
package autoload

import (
	"github.com/rs/zerolog/log"
	configx "github.com/tanpawarit/Chative-Loan-Origination/pkg/config"
	logx "github.com/tanpawarit/Chative-Loan-Origination/pkg/logger"
)

func init() {
	cfg, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		log.Warn().Err(err).Msg("logger config not loaded, using defaults")
		return
	}
	logx.Init(*cfg)
}
