// Package configs provides embedded configuration templates for folderd.
//
// Templates are embedded at build time with //go:embed so they ship in
// every distribution (source build, binary release) without a separate
// data directory to install.
//
// Configuration hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults (internal/config.NewConfig())
//  2. System config (/etc/folderd/config.yaml)
//  3. User config (~/.config/folderd/config.yaml)
//  4. Folder-local config (<folder-root>/.folderd.yaml)
//  5. Environment variables (FOLDERD_*)
//  6. CLI flags
package configs

import _ "embed"

// UserConfigTemplate is the template written by `folderd config init` at
// ~/.config/folderd/config.yaml. Holds machine-wide settings: the
// embedding worker command, active model, concurrency, and store tuning.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// FolderConfigTemplate is the template for a folder-local config at
// <folder-root>/.folderd.yaml. Holds folder-specific overrides such as
// exclude patterns. No folderd command writes it to disk.
//
//go:embed folder-config.example.yaml
var FolderConfigTemplate string
