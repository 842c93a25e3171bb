// Command sqlimport generates typed functions from annotated SQL files.
//
// The CLI supports:
//   - generate: Transform every query file under the root
//   - watch: Generate, then regenerate files as they change
//   - inspect: Print the parsed descriptors of one query file
//   - status: List generated files that are missing or out of date
//   - doctor: Run health checks over the query files
//
// Configuration is read from sqlimport.yaml, discovered by walking up from
// the working directory, and SQLIMPORT_* environment variables.
//
// Usage:
//
//	sqlimport [flags] <command>
package main

func main() {
	Execute()
}
