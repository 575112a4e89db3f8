package data

import _ "embed"

// ExampleConfig is an annotated configuration file covering every listener.
//
//go:embed maat.yaml
var ExampleConfig []byte
