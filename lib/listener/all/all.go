// Package all registers every listener implementation.
package all

import (
	_ "github.com/TecharoHQ/maat/lib/listener/devicetoken"
	_ "github.com/TecharoHQ/maat/lib/listener/prompt"
	_ "github.com/TecharoHQ/maat/lib/listener/static"
)
