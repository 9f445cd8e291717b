package detector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/home-security/internal/domain/security"
)

// TestParseVerdict covers the sentinel contract.
func TestParseVerdict(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		lines   []string
		want    Verdict
		wantErr bool
	}{
		"person after noise": {
			lines: []string{"Creating YOLO trained neural network.", "YOLO took 1.2 seconds", "Person detected."},
			want:  PersonDetected,
		},
		"no person": {
			lines: []string{"Person not detected."},
			want:  NoPersonDetected,
		},
		"sentinel as substring": {
			lines: []string{"[worker] Person detected. confidence=0.91"},
			want:  PersonDetected,
		},
		"person wins over not detected": {
			lines: []string{"Person not detected.", "Person detected."},
			want:  PersonDetected,
		},
		"empty": {
			lines:   []string{},
			wantErr: true,
		},
		"nil": {
			lines:   nil,
			wantErr: true,
		},
		"no sentinel": {
			lines:   []string{"Traceback (most recent call last):", "ModuleNotFoundError: No module named 'cv2'"},
			wantErr: true,
		},
		"case sensitive": {
			lines:   []string{"person detected."},
			wantErr: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseVerdict(tc.lines)
			if tc.wantErr {
				require.Error(t, err)
				require.True(t, security.IsKind(err, security.KindProcess))

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

// TestVerdictString keeps metric labels stable.
func TestVerdictString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "person", PersonDetected.String())
	require.Equal(t, "no_person", NoPersonDetected.String())
}
