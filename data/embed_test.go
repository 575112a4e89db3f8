package data

import (
	"bytes"
	"testing"

	"github.com/TecharoHQ/maat/lib/config"
)

func TestExampleConfigLoads(t *testing.T) {
	c, err := config.Load(bytes.NewReader(ExampleConfig), "(data)/maat.yaml")
	if err != nil {
		t.Fatal(err)
	}

	if len(c.Realms) != 3 {
		t.Errorf("example config has %d realms, want 3", len(c.Realms))
	}
}
