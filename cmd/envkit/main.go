// Command envkit is the thin CLI entrypoint over pkg/environment: it wires
// cobra subcommands to a ReadOnly environment view and leaves every
// transactional decision to the engine underneath.
package main

func main() {
	Execute()
}
