package config

// wikiBase is the quote page prefix of the Valorant wiki.
const wikiBase = "https://valorant.fandom.com/wiki/"

// defaultAgents are the characters scraped when no source is configured.
var defaultAgents = []string{
	"Brimstone", "Viper", "Omen", "Killjoy", "Cypher",
	"Sova", "Sage", "Phoenix", "Jett", "Reyna",
	"Raze", "Breach", "Skye", "Yoru", "Astra",
	"KAYO", "Chamber", "Neon", "Fade", "Harbor",
	"Gekko", "Deadlock", "Iso", "Clove", "Vyse",
}

// DefaultSources returns the quote pages scraped when neither the command
// line nor the config file names any.
func DefaultSources() []string {
	sources := make([]string, 0, len(defaultAgents))
	for _, agent := range defaultAgents {
		sources = append(sources, wikiBase+agent+"/Quotes")
	}
	return sources
}
