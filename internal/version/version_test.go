package version

import (
	"bytes"
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Short and Full return non-empty consistent information.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
	require.Contains(t, Full(), runtime.Version())
}

// TestInfo_FillFromVCS keeps injected values and shortens the revision.
func TestInfo_FillFromVCS(t *testing.T) {
	t.Parallel()

	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	var stamped Info
	stamped.fillFromVCS(settings)
	require.Equal(t, "0123456789ab", stamped.Commit)
	require.Equal(t, "2026-01-02T03:04:05Z", stamped.BuildTime)
	require.True(t, stamped.Modified)
	require.Contains(t, stamped.String(), "commit: 0123456789ab-dirty")

	injected := Info{Commit: "abc", BuildTime: "yesterday"}
	injected.fillFromVCS(settings)
	require.Equal(t, "abc", injected.Commit)
	require.Equal(t, "yesterday", injected.BuildTime)
}

// TestAttachCobraVersionCommand prints the full or the short version string.
func TestAttachCobraVersionCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "full", args: []string{"version"}, want: Full() + "\n"},
		{name: "short", args: []string{"version", "--short"}, want: Short() + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := &cobra.Command{Use: "security-ctl"}
			AttachCobraVersionCommand(root)

			var out bytes.Buffer

			root.SetOut(&out)
			root.SetArgs(tt.args)

			require.NoError(t, root.Execute())
			require.Equal(t, tt.want, out.String())
		})
	}
}
