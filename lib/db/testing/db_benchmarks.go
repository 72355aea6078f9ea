package testing

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/ValentinKolb/eKV/lib/db"
)

// RunKVDBBenchmarks runs all benchmarks for a backend. Connections are not
// safe for concurrent use, so every benchmark runs on a single goroutine.
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {
	b.Run(name, func(b *testing.B) {
		run := func(name string, fn func(b *testing.B, database db.KVDB)) {
			b.Run(name, func(b *testing.B) {
				database := factory(b)
				b.Cleanup(func() { _ = database.Close() })
				fn(b, database)
			})
		}

		run("Set", benchmarkSet)
		run("SetExisting", benchmarkSetExisting)
		run("SetLargeValue", benchmarkSetLargeValue)
		run("Get", benchmarkGet)
		run("Delete", benchmarkDelete)
		run("Scan", benchmarkScan)
		run("Keys", benchmarkKeys)
		run("DBKCount", benchmarkDBKCount)
		run("MixedUsage", benchmarkMixedUsage)
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func benchKey(i int) []byte {
	return []byte(fmt.Sprintf("bench-key-%08d", i))
}

// fill writes n keys and fails the benchmark on the first error.
func fill(b *testing.B, database db.KVDB, n int) {
	b.Helper()
	for i := 0; i < n; i++ {
		if err := database.Set(benchKey(i), []byte(fmt.Sprintf("value-%d", i))); err != nil {
			b.Fatalf("fill: %v", err)
		}
	}
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkSet(b *testing.B, database db.KVDB) {
	value := []byte("bench-value")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := database.Set(benchKey(i), value); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkSetExisting(b *testing.B, database db.KVDB) {
	const numKeys = 1000
	fill(b, database, numKeys)

	value := []byte("bench-value")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := database.Set(benchKey(i%numKeys), value); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkSetLargeValue(b *testing.B, database db.KVDB) {
	value := bytes.Repeat([]byte("x"), 64*1024)
	b.SetBytes(int64(len(value)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := database.Set(benchKey(i%100), value); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkGet(b *testing.B, database db.KVDB) {
	const numKeys = 10000
	fill(b, database, numKeys)

	rng := rand.New(rand.NewSource(42))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := database.Get(benchKey(rng.Intn(numKeys))); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkDelete(b *testing.B, database db.KVDB) {
	fill(b, database, b.N)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := database.Delete(benchKey(i)); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkScan(b *testing.B, database db.KVDB) {
	const numKeys = 5000
	fill(b, database, numKeys)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cursor := uint64((i * 100) % numKeys)
		if _, _, err := database.Scan(cursor, "bench-key-*", 100); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkKeys(b *testing.B, database db.KVDB) {
	const numKeys = 5000
	fill(b, database, numKeys)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		start := benchKey(i % numKeys)
		if _, err := database.Keys(start, []byte("bench-key-\xff"), 100); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkDBKCount(b *testing.B, database db.KVDB) {
	fill(b, database, 5000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := database.DBKCount(); err != nil {
			b.Fatal(err)
		}
	}
}

// benchmarkMixedUsage runs 70% reads, 25% writes and 5% deletes.
func benchmarkMixedUsage(b *testing.B, database db.KVDB) {
	const numKeys = 10000
	fill(b, database, numKeys)

	rng := rand.New(rand.NewSource(7))
	value := []byte("mixed-value")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := benchKey(rng.Intn(numKeys))
		switch op := rng.Intn(100); {
		case op < 70:
			_, _ = database.Get(key)
		case op < 95:
			_ = database.Set(key, value)
		default:
			_ = database.Delete(key)
		}
	}
}
