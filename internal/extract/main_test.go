package extract

import (
	"testing"

	"go.uber.org/goleak"
)

// Every fan-out must join its workers before returning, including on timeout
// and cancellation.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
