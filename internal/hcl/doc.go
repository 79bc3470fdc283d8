// Package hcl provides the HCL implementation of the config.Loader
// interface. It parses graph files written as `node "Kind" "name" {}`
// blocks and translates them into the format-agnostic config.Model.
package hcl
