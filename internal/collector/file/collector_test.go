package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRegularFileTarget(t *testing.T) {
	assert.True(t, isRegularFileTarget("/home/u/proj/main.go"))
	assert.False(t, isRegularFileTarget("socket:[12345]"))
	assert.False(t, isRegularFileTarget("pipe:[6789]"))
	assert.False(t, isRegularFileTarget("anon_inode:[eventfd]"))
	assert.False(t, isRegularFileTarget("/proc/self/status"))
	assert.False(t, isRegularFileTarget("/dev/null"))
}

func TestCollectorNoiseFilter(t *testing.T) {
	c := NewCollector(Options{})
	assert.True(t, c.isNoise("/home/u/proj/node_modules/pkg/index.js"))
	assert.True(t, c.isNoise("/home/u/proj/.git/HEAD"))
	assert.False(t, c.isNoise("/home/u/proj/main.go"))
}

func TestCollectorLifecycle(t *testing.T) {
	c := NewCollector(Options{})
	assert.False(t, c.IsRunning())
	assert.NoError(t, c.Start())
	assert.True(t, c.IsRunning())
	assert.NoError(t, c.Stop())
	assert.False(t, c.IsRunning())
}
