// SPDX-License-Identifier: MPL-2.0

// Package main is the entry point for the keel CLI.
//
// keel provisions projects from published starter kits: it downloads the
// kit archive for a release, unpacks it, installs its dependencies, and
// writes the machine definition the kit expects.
//
// Commands: new, skeleton, machine, init, explain.
//
// For detailed usage information, run:
//
//	keel --help
package main

import cmd "keel-cli/cmd/keel"

func main() {
	cmd.Execute()
}
