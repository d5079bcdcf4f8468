// Package modkit provides module wiring and core deps
package modkit

import (
	"contractscout/internal/platform/config"
	"contractscout/internal/platform/logger"
	seendomain "contractscout/internal/services/seen/domain"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log  logger.Logger
	Cfg  config.Conf
	Seen seendomain.StorePort
}
