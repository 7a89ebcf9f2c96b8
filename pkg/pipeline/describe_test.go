package pipeline

import (
	"strings"
	"testing"

	"github.com/crosutils/crosbuild/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeRemoteTestPlan(t *testing.T) {
	cfg := &config.Config{
		Board:           "arm-generic",
		Sync:            true,
		Build:           true,
		Master:          true,
		Test:            "smoke",
		Remote:          "192.168.1.2",
		ImageToLive:     true,
		ModImageForTest: true,
	}

	steps := Describe(cfg)
	joined := strings.Join(steps, "\n")
	assert.Contains(t, joined, "Live reimage")
	assert.Contains(t, joined, "Run tests on remote 192.168.1.2")

	// Deployment comes after mastering, tests come last.
	require.True(t, len(steps) >= 3)
	assert.Equal(t, "Sync sources", steps[0])
	assert.Contains(t, steps[len(steps)-1], "Run tests")
}

func TestDescribeMatchesRunConditions(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		want    []string
		notWant []string
	}{
		{
			name: "grab buildbot plan",
			cfg: &config.Config{
				Board:           config.DefaultBoard,
				GrabBuildbot:    "LATEST",
				ModImageForTest: true,
			},
			want:    []string{"Install prebuilt image"},
			notWant: []string{"Sync", "Build packages", "Master", "Modify image"},
		},
		{
			name: "unit tests only on reference board",
			cfg:  &config.Config{Board: "arm-generic", Build: true, Unittest: true},
			want: []string{"Build packages for board arm-generic"},
			notWant: []string{
				"Run unit tests",
			},
		},
		{
			name: "fresh checkout",
			cfg: &config.Config{
				Board:          config.DefaultBoard,
				CreateCheckout: true,
				ReplaceChroot:  true,
				Top:            "/work/checkout",
				Chroot:         "/work/checkout/chroot",
			},
			want: []string{"Create source checkout at /work/checkout", "Create chroot at /work/checkout/chroot"},
		},
		{
			name: "usb and vm deployment",
			cfg: &config.Config{
				Board:      config.DefaultBoard,
				ImageToUSB: "/dev/sdb",
				ImageToVM:  true,
			},
			want: []string{"Write image to USB device /dev/sdb", "Build VM image"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			joined := strings.Join(Describe(tt.cfg), "\n")
			for _, w := range tt.want {
				assert.Contains(t, joined, w)
			}
			for _, nw := range tt.notWant {
				assert.NotContains(t, joined, nw)
			}
		})
	}
}
