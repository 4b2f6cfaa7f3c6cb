// SPDX-License-Identifier: MPL-2.0

// Package machine renders the development VM definition that ships with a
// freshly provisioned project. The definition is plain YAML produced from
// a text/template with three inputs (machine IP, project name, project
// root), and every render is round-tripped through the YAML parser before
// it touches disk, so a broken custom template can never leave an invalid
// machine.yaml in the project.
package machine
