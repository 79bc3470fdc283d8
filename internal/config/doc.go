// Package config defines the format-agnostic graph model read from graph
// files, along with the Loader interface implemented by each file format.
//
// The `config.Model` is the single source of truth for building the
// evaluation graph. Concrete loaders, such as for HCL and YAML, are provided
// in separate packages.
package config
