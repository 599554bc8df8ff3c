package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func newTestQueue(t *testing.T) *JobQueue {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE jobs (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			video_id TEXT,
			params TEXT,
			progress REAL DEFAULT 0,
			result TEXT,
			error TEXT,
			created_at TIMESTAMP,
			started_at TIMESTAMP,
			completed_at TIMESTAMP
		)`)
	if err != nil {
		t.Fatal(err)
	}

	q := NewJobQueue(db)
	t.Cleanup(q.Stop)
	return q
}

// waitStatus polls until the job reaches one of the terminal states.
func waitStatus(t *testing.T, q *JobQueue, id string) *Job {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := q.GetJob(id)
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		switch job.Status {
		case StatusCompleted, StatusFailed, StatusCancelled:
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return nil
}

func TestEnqueueAndComplete(t *testing.T) {
	q := newTestQueue(t)
	q.RegisterHandler(JobClip, func(ctx context.Context, j *Job, updateProgress func(float64)) error {
		updateProgress(0.5)
		j.Result, _ = json.Marshal(ClipResult{OutputPath: "out.gif"})
		return nil
	})

	job, err := q.Enqueue(JobClip, "vid1", ClipParams{URL: "u", Start: 1, End: 4})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	final := waitStatus(t, q, job.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed (error=%s)", final.Status, final.Error)
	}
	if final.Progress != 1.0 {
		t.Errorf("progress = %f, want 1.0", final.Progress)
	}

	var result ClipResult
	if err := json.Unmarshal(final.Result, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.OutputPath != "out.gif" {
		t.Errorf("result = %+v", result)
	}
}

func TestFailedJob(t *testing.T) {
	q := newTestQueue(t)
	q.RegisterHandler(JobAcquire, func(ctx context.Context, j *Job, updateProgress func(float64)) error {
		return errors.New("no subtitles available")
	})

	job, err := q.Enqueue(JobAcquire, "vid1", AcquireParams{URL: "u", Language: "en"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	final := waitStatus(t, q, job.ID)
	if final.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", final.Status)
	}
	if final.Error != "no subtitles available" {
		t.Errorf("error = %q", final.Error)
	}
}

func TestRetryJob(t *testing.T) {
	q := newTestQueue(t)
	var attempts int64
	q.RegisterHandler(JobClip, func(ctx context.Context, j *Job, updateProgress func(float64)) error {
		if atomic.AddInt64(&attempts, 1) == 1 {
			return errors.New("transient")
		}
		return nil
	})

	job, err := q.Enqueue(JobClip, "vid1", ClipParams{URL: "u", Start: 1, End: 4})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if final := waitStatus(t, q, job.ID); final.Status != StatusFailed {
		t.Fatalf("first run status = %s, want failed", final.Status)
	}

	if err := q.RetryJob(job.ID); err != nil {
		t.Fatalf("RetryJob: %v", err)
	}
	final := waitStatus(t, q, job.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("retried status = %s, want completed (error=%s)", final.Status, final.Error)
	}
	if final.Error != "" {
		t.Errorf("error not cleared on retry: %q", final.Error)
	}
}

func TestRetryJobNotFailed(t *testing.T) {
	q := newTestQueue(t)
	q.RegisterHandler(JobClip, func(ctx context.Context, j *Job, updateProgress func(float64)) error {
		return nil
	})

	job, err := q.Enqueue(JobClip, "vid1", ClipParams{URL: "u", Start: 1, End: 4})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waitStatus(t, q, job.ID)

	if err := q.RetryJob(job.ID); err == nil {
		t.Error("RetryJob accepted a completed job")
	}
}

func TestPollPendingPicksUpOverflow(t *testing.T) {
	q := newTestQueue(t)
	q.RegisterHandler(JobClip, func(ctx context.Context, j *Job, updateProgress func(float64)) error {
		return nil
	})

	// A job whose channel push was dropped exists only as a pending row.
	params, _ := json.Marshal(ClipParams{URL: "u", Start: 1, End: 4})
	_, err := q.db.Exec(`
		INSERT INTO jobs (id, type, status, video_id, params, progress, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		"overflowed", JobClip, StatusPending, "vid1", string(params), time.Now(),
	)
	if err != nil {
		t.Fatal(err)
	}

	q.pollPending()

	final := waitStatus(t, q, "overflowed")
	if final.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed (error=%s)", final.Status, final.Error)
	}
}

func TestListJobs(t *testing.T) {
	q := newTestQueue(t)
	q.RegisterHandler(JobClip, func(ctx context.Context, j *Job, updateProgress func(float64)) error {
		return nil
	})

	for i := 0; i < 3; i++ {
		if _, err := q.Enqueue(JobClip, "vid1", ClipParams{URL: "u", Start: 1, End: 4}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	jobs, err := q.ListJobs()
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Errorf("got %d jobs, want 3", len(jobs))
	}
}
