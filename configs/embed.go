// Package configs embeds the seed files shipped alongside the binary.
package configs

import _ "embed"

//go:embed sources.yaml
var SourcesYAML []byte
