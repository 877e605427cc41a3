package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertNodeRan checks the captured log output to confirm that the compute
// pipeline ran the plugin on the node at path (e.g. "tree/child").
func AssertNodeRan(t *testing.T, logOutput, path, plugin string) {
	t.Helper()

	for _, line := range strings.Split(logOutput, "\n") {
		if strings.Contains(line, "Running compute pipeline.") &&
			strings.Contains(line, fmt.Sprintf("node=%s ", path)) &&
			strings.Contains(line, fmt.Sprintf("plugin=%s", plugin)) {
			return
		}
	}
	require.Fail(t, "node did not run", "expected compute log for plugin '%s' on node '%s' was not found in logs", plugin, path)
}
