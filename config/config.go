// Package config loads the engine's own tunables: the default fanout
// engine.Engine.Init creates namespaces with (namespaces created
// implicitly on first write do not use it), and the logging level the engine
// facade's enginelog.Logger is built with. It mirrors the teacher's
// server/conf package (struct-tag defaults, file overrides) but
// targets this engine's settings instead of a MySQL server's, and
// loads TOML via github.com/pelletier/go-toml rather than ini.v1 —
// this repository has one small settings surface, not the teacher's
// MySQL-server-shaped one, so a single flat TOML document fits better
// than ini's section format (see DESIGN.md).
package config

import (
	"os"

	"github.com/pelletier/go-toml"

	"github.com/zhukovaskychina/btreeindex/nodestore"
)

// EngineDefaults are the settings every engine.Engine is built with
// absent an explicit override.
type EngineDefaults struct {
	// MaxNodeSize is the fanout engine.Engine.Init uses when a caller
	// doesn't pass one explicitly.
	MaxNodeSize int `toml:"max_node_size" default:"16"`
	// LogLevel selects the enginelog.Logger level a
	// config-constructed Engine logs at.
	LogLevel string `toml:"log_level" default:"info"`
}

// Default returns the built-in defaults, matching spec.md §6.4's
// default MaxNodeSize of 16.
func Default() EngineDefaults {
	return EngineDefaults{
		MaxNodeSize: nodestore.DefaultMaxNodeSize,
		LogLevel:    "info",
	}
}

// Load reads path as TOML and overlays it onto Default(); a field
// absent from the file keeps its built-in default rather than
// becoming zero. Load is tolerant of a file that sets only some
// fields, which is the common case (most deployments only ever
// override max_node_size or log_level).
func Load(path string) (EngineDefaults, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineDefaults{}, err
	}

	overlay := struct {
		MaxNodeSize *int    `toml:"max_node_size"`
		LogLevel    *string `toml:"log_level"`
	}{}
	if err := toml.Unmarshal(data, &overlay); err != nil {
		return EngineDefaults{}, err
	}

	if overlay.MaxNodeSize != nil {
		cfg.MaxNodeSize = *overlay.MaxNodeSize
	}
	if overlay.LogLevel != nil {
		cfg.LogLevel = *overlay.LogLevel
	}
	return cfg, nil
}
