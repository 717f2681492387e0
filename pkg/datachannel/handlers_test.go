package datachannel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlersOrderAndRemove(t *testing.T) {
	var h handlers[func(*[]int)]
	h.add(func(out *[]int) { *out = append(*out, 1) })
	remove := h.add(func(out *[]int) { *out = append(*out, 2) })
	h.add(func(out *[]int) { *out = append(*out, 3) })

	var got []int
	h.each(func(fn func(*[]int)) { fn(&got) })
	assert.Equal(t, []int{1, 2, 3}, got)

	remove()
	remove()
	got = nil
	h.each(func(fn func(*[]int)) { fn(&got) })
	assert.Equal(t, []int{1, 3}, got)
	assert.Equal(t, 2, h.len())

	h.clear()
	assert.Zero(t, h.len())
}

func TestHandlersRemoveWhileRunning(t *testing.T) {
	var h handlers[func()]
	var calls int
	var removeSelf func()
	removeSelf = h.add(func() {
		calls++
		removeSelf()
	})
	h.add(func() { calls++ })

	h.each(func(fn func()) { fn() })
	assert.Equal(t, 2, calls)
	h.each(func(fn func()) { fn() })
	assert.Equal(t, 3, calls)
}

func TestHandlersConcurrent(t *testing.T) {
	var h handlers[func()]
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				remove := h.add(func() {})
				h.each(func(fn func()) { fn() })
				remove()
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, h.len())
}
