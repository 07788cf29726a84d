// Package config loads facekit configuration.
//
// Configuration is read from a TOML file, then overridden by FACEKIT_*
// environment variables, then validated:
//
//	[undo]
//	max_restores = 10
//	strict = false
//
//	[worker]
//	tick_interval = "1s"
//	timeout = "0s"
//
//	[dispatch]
//	max_depth = 32
//
//	[logging]
//	level = "info"
//	format = "auto"
//
//	[metrics]
//	enabled = false
//	namespace = "facekit"
//	listen = ""
//
//	[plugins]
//	scripts = []
//
// A missing file is not an error; defaults apply.
package config
