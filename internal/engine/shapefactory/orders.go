package shapefactory

import (
	"hash/fnv"
	"math/rand"
	"sort"

	"github.com/haasonsaas/nexus/pkg/models"
)

// GenerateOrders deterministically derives a participant's order sequence
// from (specialty, session, shapesPerOrder): same inputs always produce the
// same sequence. The original implementation seeds Python's random module
// from an MD5 digest of "<specialty>_<session_id>"; this reproduces the same
// determinism contract with an idiomatic Go seed (FNV-1a of the same string)
// rather than carrying over an MD5-specific trick (§9, original_source
// supplement).
//
// The generated sequence draws shapesPerOrder tags from every specialty
// present in the session except the participant's own, so fulfilment always
// requires a trade.
func GenerateOrders(specialty string, session models.SessionCode, otherSpecialties []string, shapesPerOrder int) []string {
	if shapesPerOrder <= 0 || len(otherSpecialties) == 0 {
		return nil
	}

	pool := make([]string, len(otherSpecialties))
	copy(pool, otherSpecialties)
	sort.Strings(pool) // determinism must not depend on caller's map/slice order

	seed := fnvSeed(specialty + "_" + string(session))
	rng := rand.New(rand.NewSource(seed))

	orders := make([]string, shapesPerOrder)
	for i := range orders {
		orders[i] = pool[rng.Intn(len(pool))]
	}
	return orders
}

func fnvSeed(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}
