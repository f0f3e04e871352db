package dispatch

import (
	"sync"
	"testing"
)

func TestDoRunsSynchronously(t *testing.T) {
	loop := NewLoop()
	defer loop.Close()

	ran := false
	loop.Do(func() { ran = true })
	if !ran {
		t.Fatalf("expected Do to wait for the function")
	}
}

func TestLoopSerializesWriters(t *testing.T) {
	loop := NewLoop()
	defer loop.Close()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop.Do(func() { counter++ })
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("expected 50 serialized increments, got %d", counter)
	}
}

func TestDoAfterCloseDoesNotBlock(t *testing.T) {
	loop := NewLoop()
	loop.Close()

	done := make(chan struct{})
	go func() {
		loop.Do(func() {})
		close(done)
	}()
	<-done
}
