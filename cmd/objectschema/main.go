// Package main is the entry point for the objectschema CLI.
package main

func main() {
	Execute()
}
