package statesync

import (
	"fmt"
	"sync"
	"testing"
)

// Benchmark basic trigger with a single listener
func BenchmarkTrigger(b *testing.B) {
	e := NewEvents()
	e.On("ping", func(...any) {})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Trigger("ping", i)
	}
}

// Benchmark multiple listeners plus a catch-all
func BenchmarkMultipleListeners(b *testing.B) {
	benchmarks := []int{1, 10, 100}

	for _, numListeners := range benchmarks {
		b.Run(fmt.Sprintf("listeners-%d", numListeners), func(b *testing.B) {
			e := NewEvents()
			for l := 0; l < numListeners; l++ {
				e.On("ping", func(...any) {})
			}
			e.On(EventAll, func(...any) {})

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				e.Trigger("ping", i)
			}
		})
	}
}

// Benchmark concurrent triggers on one emitter
func BenchmarkConcurrentTrigger(b *testing.B) {
	benchmarks := []int{1, 10, 100}

	for _, numTriggers := range benchmarks {
		b.Run(fmt.Sprintf("goroutines-%d", numTriggers), func(b *testing.B) {
			e := NewEvents()
			e.On("ping", func(...any) {})

			b.ResetTimer()
			var wg sync.WaitGroup
			perGoroutine := b.N / numTriggers
			if perGoroutine == 0 {
				perGoroutine = 1
			}

			for g := 0; g < numTriggers; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < perGoroutine; i++ {
						e.Trigger("ping", i)
					}
				}()
			}

			wg.Wait()
		})
	}
}

// Benchmark listener registration/removal
func BenchmarkOnOff(b *testing.B) {
	e := NewEvents()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := e.On("ping", func(...any) {})
		e.Off(id)
	}
}

// Benchmark a model set observed through a State relay
func BenchmarkStateSet(b *testing.B) {
	s, err := NewState(Config{InitialState: Attributes{"count": 0}})
	if err != nil {
		b.Fatal(err)
	}
	s.On("change:count", func(...any) {})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Set("count", i)
	}
}

// Benchmark a priming pass
func BenchmarkSync(b *testing.B) {
	model := NewModel(Attributes{"a": 1, "b": 2, "c": 3})
	target := NewObject()
	target.Handle("onChange", func(...any) {})
	bindings := Bindings{
		On("change:a change:b change:c", "onChange"),
		On("change all", "onChange"),
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := Sync(target, model, bindings); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark a deferred syncing triggered repeatedly
func BenchmarkDeferredSyncing(b *testing.B) {
	model := NewModel(Attributes{"x": 1})
	target := NewObject()
	target.Handle("onChangeX", func(...any) {})

	if _, err := SyncEntityEvents(target, model, Bindings{On("change:x", "onChangeX")}, When("render")); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		target.Trigger("render")
	}
}
