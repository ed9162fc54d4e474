package sweeper

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediagrab/api/internal/model"
	"github.com/mediagrab/api/internal/registry"
)

func writeArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	return path
}

func completedJob(reg *registry.Registry, path string) model.Job {
	job := reg.Create("https://example.com/v", model.FormatAudioExtract)
	reg.Start(job.ID)
	reg.Complete(job.ID, path, filepath.Base(path))
	return job
}

func TestSweep_ExpiresOldJobsAndDeletesArtifacts(t *testing.T) {
	dir := t.TempDir()
	reg := registry.New()

	path := writeArtifact(t, dir, "a.mp3")
	job := completedJob(reg, path)

	time.Sleep(20 * time.Millisecond)
	s := New(reg, 10*time.Millisecond, time.Minute)
	s.Sweep()

	got, ok := reg.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, model.JobStatusExpired, got.Status)
	assert.NoFileExists(t, path)
}

func TestSweep_LeavesYoungTerminalJobsAlone(t *testing.T) {
	dir := t.TempDir()
	reg := registry.New()

	path := writeArtifact(t, dir, "a.mp3")
	job := completedJob(reg, path)

	s := New(reg, time.Hour, time.Minute)
	s.Sweep()

	got, _ := reg.Get(job.ID)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.FileExists(t, path)
}

func TestSweep_NeverTouchesLiveJobs(t *testing.T) {
	reg := registry.New()

	queued := reg.Create("u", model.FormatVideoBest)
	running := reg.Create("u", model.FormatVideoBest)
	reg.Start(running.ID)

	s := New(reg, 0, time.Minute)
	time.Sleep(5 * time.Millisecond)
	s.Sweep()

	got, _ := reg.Get(queued.ID)
	assert.Equal(t, model.JobStatusQueued, got.Status)
	got, _ = reg.Get(running.ID)
	assert.Equal(t, model.JobStatusRunning, got.Status)
}

func TestSweep_MissingArtifactIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	reg := registry.New()

	path := filepath.Join(dir, "already-gone.mp3")
	job := completedJob(reg, path)

	time.Sleep(5 * time.Millisecond)
	s := New(reg, 0, time.Minute)
	s.Sweep()

	got, _ := reg.Get(job.ID)
	assert.Equal(t, model.JobStatusExpired, got.Status)
}

func TestSweep_FailedJobsExpireToo(t *testing.T) {
	reg := registry.New()

	job := reg.Create("u", model.FormatVideoBest)
	reg.Start(job.ID)
	reg.Fail(job.ID, "boom")

	time.Sleep(5 * time.Millisecond)
	s := New(reg, 0, time.Minute)
	s.Sweep()

	got, _ := reg.Get(job.ID)
	assert.Equal(t, model.JobStatusExpired, got.Status)
}

func TestSweep_UndeletableArtifactRetriesNextPass(t *testing.T) {
	dir := t.TempDir()
	reg := registry.New()

	// A non-empty directory cannot be os.Remove'd, standing in for a
	// deletion failure.
	blocked := filepath.Join(dir, "artifact-dir")
	require.NoError(t, os.Mkdir(blocked, 0o755))
	writeArtifact(t, blocked, "inner.mp3")

	job := completedJob(reg, blocked)

	time.Sleep(5 * time.Millisecond)
	s := New(reg, 0, time.Minute)
	s.Sweep()

	// Still terminal, path intact: nothing was lost track of.
	got, _ := reg.Get(job.ID)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.DirExists(t, blocked)

	// Once deletable, the next pass finishes the expiry.
	require.NoError(t, os.RemoveAll(blocked))
	s.Sweep()
	got, _ = reg.Get(job.ID)
	assert.Equal(t, model.JobStatusExpired, got.Status)
}

func TestStartStop(t *testing.T) {
	reg := registry.New()
	s := New(reg, time.Hour, time.Minute)
	require.NoError(t, s.Start())
	s.Stop()
}
