// Package main provides the entry point for the mkattack CLI.
//
// mkattack measures how much of a population can be re-identified from
// published record-linkage match-keys. It mounts dictionary attacks with a
// top-K guess space, matches unlabeled digest columns to their scheme by
// frequency correlation, and consolidates recovered records into profiles.
//
// Usage:
//
//	mkattack attack --reference population.csv --observed keys.csv
//	mkattack correlate --reference population.csv --observed keys.csv
//
// See --help for all available options.
package main

func main() {
	Execute()
}
