package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopiesJobs(t *testing.T) {
	sync := &stubJob{name: "pos-sync"}
	audit := &stubJob{name: "sheet-audit"}
	registry := NewRegistry(nil, sync)
	require.NoError(t, registry.Register(audit))

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, sync, jobs[0])
	assert.Same(t, audit, jobs[1])
	assert.Equal(t, []string{"pos-sync", "sheet-audit"}, registry.Names())

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0], "internal slice leaked")
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "pos-sync"}, &stubJob{name: "pos-sync"})
	assert.Len(t, registry.Jobs(), 1)

	err := registry.Register(&stubJob{name: "pos-sync"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pos-sync")
	assert.Len(t, registry.Jobs(), 1)

	assert.NoError(t, registry.Register(nil))
}

func TestZeroRegistryAcceptsJobs(t *testing.T) {
	var registry Registry
	require.NoError(t, registry.Register(&stubJob{name: "pos-sync"}))
	assert.Equal(t, []string{"pos-sync"}, registry.Names())
}
