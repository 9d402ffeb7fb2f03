package prompts

import "strings"

// PlayerEntry is one curated player record. Nickname may be empty; the
// mutator's fallthrough policy decides what happens then.
type PlayerEntry struct {
	FullName string
	Surname  string
	Nickname string
	Club     string
	Position string
}

// ClubEntry maps an official club name to the descriptors used by the
// escalation ladder. Aliases cover the forms that show up in dialogue.
type ClubEntry struct {
	Name      string
	Aliases   []string
	GeoDesc   string // e.g. "the Catalan side"
	ColorDesc string // e.g. "the blaugrana side"
}

// Curated lookup tables. The ladder depends on these being stable between
// runs, so they are compiled in rather than loaded from a file.
var players = []PlayerEntry{
	{FullName: "Robert Lewandowski", Surname: "Lewandowski", Nickname: "Lewy", Club: "Barcelona", Position: "striker"},
	{FullName: "Lamine Yamal", Surname: "Yamal", Nickname: "", Club: "Barcelona", Position: "winger"},
	{FullName: "Vinicius Junior", Surname: "Vinicius", Nickname: "Vini", Club: "Real Madrid", Position: "winger"},
	{FullName: "Jude Bellingham", Surname: "Bellingham", Nickname: "Belli", Club: "Real Madrid", Position: "midfielder"},
	{FullName: "Kylian Mbappe", Surname: "Mbappe", Nickname: "Kyky", Club: "Real Madrid", Position: "striker"},
	{FullName: "Antoine Griezmann", Surname: "Griezmann", Nickname: "Grizi", Club: "Atletico de Madrid", Position: "forward"},
	{FullName: "Julian Alvarez", Surname: "Alvarez", Nickname: "la Arana", Club: "Atletico de Madrid", Position: "striker"},
	{FullName: "Iago Aspas", Surname: "Aspas", Nickname: "el Principe", Club: "Celta de Vigo", Position: "forward"},
	{FullName: "Mikel Oyarzabal", Surname: "Oyarzabal", Nickname: "Oyar", Club: "Real Sociedad", Position: "forward"},
	{FullName: "Alexander Sorloth", Surname: "Sorloth", Nickname: "", Club: "Villarreal", Position: "striker"},
	{FullName: "Ante Budimir", Surname: "Budimir", Nickname: "", Club: "Osasuna", Position: "striker"},
}

var clubs = []ClubEntry{
	{Name: "Barcelona", Aliases: []string{"FC Barcelona", "Barca"}, GeoDesc: "the Catalan side", ColorDesc: "the blaugrana side"},
	{Name: "Real Madrid", Aliases: []string{"Madrid"}, GeoDesc: "the side from the capital", ColorDesc: "the white side"},
	{Name: "Atletico de Madrid", Aliases: []string{"Atletico", "Atleti"}, GeoDesc: "the other side from the capital", ColorDesc: "the red-and-white side"},
	{Name: "Celta de Vigo", Aliases: []string{"Celta"}, GeoDesc: "the Galician side", ColorDesc: "the sky-blue side"},
	{Name: "Real Sociedad", Aliases: []string{"La Real"}, GeoDesc: "the Basque side", ColorDesc: "the blue-and-white side"},
	{Name: "Villarreal", Aliases: []string{"Villarreal CF"}, GeoDesc: "the side from Castellon", ColorDesc: "the yellow side"},
	{Name: "Osasuna", Aliases: []string{"CA Osasuna"}, GeoDesc: "the Navarrese side", ColorDesc: "the red side"},
	{Name: "Athletic Club", Aliases: []string{"Athletic", "Bilbao"}, GeoDesc: "the side from Bilbao", ColorDesc: "the red-and-white stripes side"},
	{Name: "Real Betis", Aliases: []string{"Betis"}, GeoDesc: "the side from Seville", ColorDesc: "the green-and-white side"},
}

// LookupPlayer resolves a player by full name, surname or nickname,
// case-insensitively.
func LookupPlayer(name string) (PlayerEntry, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return PlayerEntry{}, false
	}
	for _, p := range players {
		if n == strings.ToLower(p.FullName) || n == strings.ToLower(p.Surname) {
			return p, true
		}
		if p.Nickname != "" && n == strings.ToLower(p.Nickname) {
			return p, true
		}
	}
	return PlayerEntry{}, false
}

// LookupClub resolves a club by official name or alias, case-insensitively.
func LookupClub(name string) (ClubEntry, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return ClubEntry{}, false
	}
	for _, c := range clubs {
		if n == strings.ToLower(c.Name) {
			return c, true
		}
		for _, a := range c.Aliases {
			if n == strings.ToLower(a) {
				return c, true
			}
		}
	}
	return ClubEntry{}, false
}

// KnownPlayerNames returns every token that identifies a player (full names
// first so trigger scanning prefers the longest match).
func KnownPlayerNames() []string {
	var names []string
	for _, p := range players {
		names = append(names, p.FullName)
	}
	for _, p := range players {
		names = append(names, p.Surname)
	}
	return names
}

// KnownClubNames returns every official club name and alias.
func KnownClubNames() []string {
	var names []string
	for _, c := range clubs {
		names = append(names, c.Name)
		names = append(names, c.Aliases...)
	}
	return names
}
