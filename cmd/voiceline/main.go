// Package main provides the entry point for the voiceline CLI.
//
// voiceline collects agent voice lines from the Valorant wiki and writes
// them, one tab per agent, to a Google spreadsheet or a local workbook.
//
// Usage:
//
//	voiceline scrape
//	voiceline scrape https://valorant.fandom.com/wiki/Jett/Quotes
//	voiceline history --diff
//
// See --help for all available options.
package main

func main() {
	Execute()
}
