// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from <user config dir>/palette/config.cue (falling back to
// ./config.cue), or from an explicit file. The file is validated against the embedded
// #Config schema (config_schema.cue) before it is merged over the defaults.
//
// Role and identity names are case-insensitive: Viper folds map keys to lower case.
package config
