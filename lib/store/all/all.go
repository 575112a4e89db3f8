// Package all registers every store backend.
package all

import (
	_ "github.com/TecharoHQ/maat/lib/store/bbolt"
	_ "github.com/TecharoHQ/maat/lib/store/memory"
	_ "github.com/TecharoHQ/maat/lib/store/valkey"
)
