// Package config provides the run configuration of mkattack: input tables,
// guess-space and correlation parameters, report and storage settings, and
// the optional .mkattack file that adds custom schemes and defaults.
package config
