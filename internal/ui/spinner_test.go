package ui

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureSpinner returns a spinner writing into a mutex-guarded buffer.
func captureSpinner(label string) (*Spinner, func() string) {
	var buf strings.Builder
	var mu sync.Mutex

	s := NewSpinner(label)
	s.SetOutput(func(str string) {
		mu.Lock()
		buf.WriteString(str)
		mu.Unlock()
	})
	return s, func() string {
		mu.Lock()
		defer mu.Unlock()
		return buf.String()
	}
}

func TestNewSpinner(t *testing.T) {
	s := NewSpinner("Collecting")
	assert.Equal(t, "Collecting", s.Label())
	assert.Equal(t, SpinnerPending, s.State())
}

func TestSpinnerStartStop(t *testing.T) {
	s, output := captureSpinner("Collecting")

	s.Start()
	assert.Equal(t, SpinnerInProgress, s.State())
	time.Sleep(2 * spinnerInterval)
	s.Stop()

	assert.Equal(t, SpinnerInProgress, s.State(), "Stop leaves the state alone")
	assert.Contains(t, output(), "Collecting...")
}

func TestSpinnerSuccess(t *testing.T) {
	s, output := captureSpinner("Collecting")

	s.Start()
	s.Success()

	assert.Equal(t, SpinnerSuccess, s.State())
	assert.Contains(t, output(), SymbolSuccess)
	assert.True(t, strings.HasSuffix(output(), "\n"))
}

func TestSpinnerFail(t *testing.T) {
	s, output := captureSpinner("Collecting")

	s.Start()
	s.Fail()

	assert.Equal(t, SpinnerFailed, s.State())
	assert.Contains(t, output(), SymbolFail)
}

func TestSpinnerDoubleStartStop(t *testing.T) {
	s, _ := captureSpinner("Collecting")

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()

	assert.Equal(t, SpinnerInProgress, s.State())
}

func TestSpinnerSetLabel(t *testing.T) {
	s := NewSpinner("Initial")
	s.SetLabel("Updated")
	assert.Equal(t, "Updated", s.Label())
}

func TestSpinnerConcurrentAccess(t *testing.T) {
	s, _ := captureSpinner("Collecting")
	s.Start()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.State()
			s.SetLabel("Collecting again")
		}()
	}
	wg.Wait()
	s.Success()

	require.Equal(t, SpinnerSuccess, s.State())
}
