// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the evaluation lifecycle: loading graph
// files, building the evaluator, running passes headless or in a preview
// window, publishing pass status and exporting results. It is decoupled
// from any specific entrypoint like a CLI.
package app
