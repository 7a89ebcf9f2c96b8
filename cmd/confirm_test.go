package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/crosutils/crosbuild/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfirmation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "lowercase yes", input: "y\n"},
		{name: "uppercase yes", input: "Y\n"},
		{name: "no", input: "n\n", wantErr: true},
		{name: "empty answer", input: "\n", wantErr: true},
		{name: "spelled out yes", input: "yes\n"},
		{name: "spelled out uppercase yes", input: "YES\n"},
		{name: "garbage", input: "ok\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := readConfirmation(strings.NewReader(tt.input), &out)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out.String(), "Continue?")
		})
	}
}

func TestPrintPlan(t *testing.T) {
	var out bytes.Buffer
	cfg := &config.Config{Board: "x86-generic"}
	printPlan(&out, cfg, []string{"Sync sources", "Master bootable image"})

	require.Contains(t, out.String(), "x86-generic")
	assert.Contains(t, out.String(), "1. Sync sources")
	assert.Contains(t, out.String(), "2. Master bootable image")
}

func TestPrintPlanEmpty(t *testing.T) {
	var out bytes.Buffer
	printPlan(&out, &config.Config{Board: "x86-generic"}, nil)
	assert.Contains(t, out.String(), "nothing to do")
}
