// Package main provides the entry point for the blockseg CLI.
//
// blockseg turns layout detector output into non-overlapping page regions
// with a reading order and writes them as PAGE XML.
//
// Usage:
//
//	blockseg resolve <bundle-dir>...
//	blockseg classes
//
// See --help for all available options.
package main

// main is the entry point for blockseg.
func main() {
	Execute()
}
