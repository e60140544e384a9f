package server

import "math/rand/v2"

// NameGenerator produces a display name for a newly registered connection.
// The hub calls it once per registration.
type NameGenerator func() string

var (
	firstNames = []string{
		"Alex", "Anna", "Bohdan", "Clara", "Daniel", "Eva", "Felix", "Hanna",
		"Ivan", "Julia", "Kateryna", "Leo", "Maria", "Nina", "Oleh", "Petro",
		"Roman", "Sofia", "Taras", "Vira",
	}
	lastNames = []string{
		"Bell", "Bondar", "Clarke", "Fisher", "Harris", "Koval", "Kravets",
		"Lewis", "Melnyk", "Morgan", "Parker", "Ponomarenko", "Reed",
		"Shevchenko", "Tkachenko", "Walker",
	}
)

// RandomName returns a random "First Last" display name. It is the default
// NameGenerator for hubs that are not given one.
func RandomName() string {
	return firstNames[rand.IntN(len(firstNames))] + " " + lastNames[rand.IntN(len(lastNames))]
}
