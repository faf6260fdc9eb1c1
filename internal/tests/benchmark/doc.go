// Package benchmark provides performance benchmarks for statesnap codecs and
// snapshot export/import.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Run a single codec:
//
//	go test -bench='BenchmarkCodecWrite/zst' -benchmem -benchtime=10s ./internal/tests/benchmark/...
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
