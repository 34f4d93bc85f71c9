package testutil

import (
	"fmt"
	"math/rand"

	"changelog-bot/lib/changelog"
)

// RandomSwitch returns a function that will output various integers at different weights.
//
// Ex. RandomSwitch(2, 3, 5) will return a function that will output:
//   - `0` 20% of the time
//   - `1` 30% of the time
//   - `2` 50% of the time
func RandomSwitch(weights ...int) func(rndm *rand.Rand) int {
	if len(weights) == 0 {
		panic("a random switch must have at least 1 probability")
	}

	var sum int
	for _, p := range weights {
		if p <= 0 {
			panic("cannot have weight that is 0 or negative")
		}
		sum += p
	}

	return func(rndm *rand.Rand) int {
		value := rndm.Intn(sum)

		threshold := 0
		for i := 0; i < len(weights); i++ {
			threshold += weights[i]
			if value < threshold {
				return i
			}
		}

		panic(fmt.Sprintf("random value generated was out of bounds: %d", value))
	}
}

var (
	randomLines      = []string{"19.5", "20.0", "20.5"}
	randomCategories = []string{"sop", "lop", "karma", "vex", "pdg", "usd"}
)

// RandomSnapshot generates a snapshot of up to builds builds drawn from a
// small pool of lines, categories and descriptions so that two snapshots
// generated from the same rndm overlap often.
func RandomSnapshot(rndm *rand.Rand, builds int) *changelog.Snapshot {
	entryCount := RandomSwitch(1, 3, 3, 2)

	s := changelog.New()
	for i := 0; i < builds; i++ {
		build := fmt.Sprintf(
			"%s.%d",
			randomLines[rndm.Intn(len(randomLines))],
			490+rndm.Intn(20),
		)
		for j := 0; j <= entryCount(rndm)*2; j++ {
			s.Fill(
				build,
				randomCategories[rndm.Intn(len(randomCategories))],
				fmt.Sprintf("Fixed issue #%d", rndm.Intn(12)),
			)
		}
	}
	return s
}
