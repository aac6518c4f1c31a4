//go:build linux

package mailbox

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// testNames returns names scoped to a fresh session and removes whatever is
// left of them when the test ends.
func testNames(t *testing.T) Names {
	t.Helper()
	names, err := SessionNames("t-" + uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { Remove(names) })
	return names
}
