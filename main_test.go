package hashset

import (
	"testing"

	"go.uber.org/goleak"
)

// Every writer goroutine started by a test must be gone by the end.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
