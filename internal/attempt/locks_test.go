package attempt

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLocksSerializeAndRelease(t *testing.T) {
	k := NewKeyedLocks()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("submission:1")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Zero(t, k.size())

	a := k.Lock("a")
	b := k.Lock("b")
	assert.Equal(t, 2, k.size())
	a()
	b()
	assert.Zero(t, k.size())
}
