package table

import (
	faker "github.com/go-faker/faker/v4"

	"github.com/colsql/queryserver/pkg/prng"
)

// employeeFixture is a faker-generated row shape used to build
// deterministic in-memory tables for tests, without touching disk.
type employeeFixture struct {
	Name string `faker:"name"`
	City string `faker:"word"`
}

func deterministicFixtures(seed int64, n int) []employeeFixture {
	faker.SetCryptoSource(prng.New(seed))
	out := make([]employeeFixture, n)
	for i := range out {
		var f employeeFixture
		_ = faker.FakeData(&f)
		out[i] = f
	}
	return out
}
