package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	c := Default()
	c.Input = "in.mp4"
	c.Output = "out.avi"
	return c
}

func TestDefaultIsValidWithPaths(t *testing.T) {
	c := validConfig()
	assert.NoError(t, c.Validate())
	assert.Equal(t, 8, c.Workers)
	assert.Equal(t, 11, c.BlurSize)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"missing input":  func(c *Config) { c.Input = "" },
		"end before":     func(c *Config) { c.StartSec, c.EndSec = 5, 2 },
		"roi x":          func(c *Config) { c.ROI.X = 1.5 },
		"roi radius":     func(c *Config) { c.ROI.Radius = 0 },
		"no workers":     func(c *Config) { c.Workers = 0 },
		"even blur":      func(c *Config) { c.BlurSize = 10 },
		"half size":      func(c *Config) { c.Width, c.Height = 640, 0 },
		"bad encoder":    func(c *Config) { c.Encoder = "gif" },
		"bad fourcc":     func(c *Config) { c.Codec = "H264X" },
		"negative start": func(c *Config) { c.StartSec = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestFromFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Input": "a.mp4", "Output": "b.avi", "EndSec": 12, "ROI": {"X": 0.25, "Y": 0.75, "Radius": 0.1}}`), 0644))

	c, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a.mp4", c.Input)
	assert.Equal(t, 12.0, c.EndSec)
	assert.Equal(t, ROI{X: 0.25, Y: 0.75, Radius: 0.1}, c.ROI)
	assert.Equal(t, 8, c.Workers)
	assert.Equal(t, 250, c.TrailLength)
}

func TestFromFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Input": `), 0644))
	_, err := FromFile(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TRACKER_WORKERS", "3")
	t.Setenv("TRACKER_ROI_RADIUS", "0.2")
	t.Setenv("TRACKER_END", "not-a-number")

	c := validConfig()
	c.ApplyEnv()
	assert.Equal(t, 3, c.Workers)
	assert.Equal(t, 0.2, c.ROI.Radius)
	assert.Equal(t, 5.0, c.EndSec)
}

func TestWatchDeliversChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Input": "a.mp4", "Output": "b.avi"}`), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := Watch(ctx, path)

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"Input": "c.mp4", "Output": "d.avi"}`), 0644))

	select {
	case cfg := <-c:
		require.NotNil(t, cfg)
		assert.Equal(t, "c.mp4", cfg.Input)
	case <-time.After(5 * time.Second):
		t.Fatal("no config delivered after change")
	}

	cancel()
	for range c {
	}
}
