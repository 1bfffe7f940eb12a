package plan_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/myrjola/velocoach/internal/plan"
	"github.com/myrjola/velocoach/internal/testhelpers"
)

func newJobs(t *testing.T) *plan.Jobs {
	t.Helper()
	return plan.NewJobs(testhelpers.NewLogger(testhelpers.NewWriter(t)), time.Minute)
}

func jobPlan(code plan.Code) plan.SavedPlan {
	var saved plan.SavedPlan
	saved.Plan.PlanCode = code
	return saved
}

func TestJobs_Lifecycle(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		jobs := newJobs(t)
		release := make(chan struct{})
		id, err := jobs.Start(t.Context(), "owner", func(context.Context) (plan.SavedPlan, error) {
			<-release
			return jobPlan("AB23"), nil
		})
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}

		synctest.Wait()
		job, ok := jobs.Result(id)
		if !ok || job.Status != plan.JobRunning {
			t.Fatalf("Result() = %v, %v, want running", job.Status, ok)
		}

		close(release)
		synctest.Wait()
		job, ok = jobs.Result(id)
		if !ok || job.Status != plan.JobSucceeded {
			t.Fatalf("Result() = %v, %v, want succeeded", job.Status, ok)
		}
		if job.Plan.Code() != "AB23" {
			t.Errorf("plan code = %q, want AB23", job.Plan.Code())
		}
		if _, ok = jobs.Result(id); ok {
			t.Error("finished job still present after it was read")
		}
	})
}

func TestJobs_SameOwnerSharesGeneration(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		jobs := newJobs(t)
		release := make(chan struct{})
		var calls atomic.Int32
		generate := func(context.Context) (plan.SavedPlan, error) {
			calls.Add(1)
			<-release
			return jobPlan("AB23"), nil
		}

		first, err := jobs.Start(t.Context(), "owner", generate)
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		synctest.Wait()
		second, err := jobs.Start(t.Context(), "owner", generate)
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		synctest.Wait()
		other, err := jobs.Start(t.Context(), "other", generate)
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		synctest.Wait()
		close(release)
		synctest.Wait()

		if got := calls.Load(); got != 2 {
			t.Errorf("generate called %d times, want 2", got)
		}
		for _, id := range []string{first, second, other} {
			if job, _ := jobs.Result(id); job.Status != plan.JobSucceeded {
				t.Errorf("job %s status = %v, want succeeded", id, job.Status)
			}
		}
	})
}

func TestJobs_Timeout(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		jobs := newJobs(t)
		var timeouts atomic.Int32
		jobs.OnTimeout(func(context.Context) {
			timeouts.Add(1)
		})
		id, err := jobs.Start(t.Context(), "owner", func(ctx context.Context) (plan.SavedPlan, error) {
			<-ctx.Done()
			return plan.SavedPlan{}, ctx.Err()
		})
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		time.Sleep(time.Minute + time.Second)
		synctest.Wait()

		job, ok := jobs.Result(id)
		if !ok || job.Status != plan.JobFailed {
			t.Fatalf("Result() = %v, %v, want failed", job.Status, ok)
		}
		if !errors.Is(job.Err, context.DeadlineExceeded) {
			t.Errorf("Err = %v, want deadline exceeded", job.Err)
		}
		if got := timeouts.Load(); got != 1 {
			t.Errorf("timeout hook called %d times, want 1", got)
		}
	})
}

func TestJobs_OutlivesRequest(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		jobs := newJobs(t)
		ctx, cancel := context.WithCancel(t.Context())
		release := make(chan struct{})
		id, err := jobs.Start(ctx, "owner", func(ctx context.Context) (plan.SavedPlan, error) {
			<-release
			return jobPlan("AB23"), ctx.Err()
		})
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		cancel()
		close(release)
		synctest.Wait()

		if job, _ := jobs.Result(id); job.Status != plan.JobSucceeded {
			t.Errorf("status = %v, want succeeded (err %v)", job.Status, job.Err)
		}
	})
}

func TestJobs_UnreadJobsExpire(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		jobs := newJobs(t)
		done := func(context.Context) (plan.SavedPlan, error) { return jobPlan("AB23"), nil }
		stale, err := jobs.Start(t.Context(), "owner", done)
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		synctest.Wait()
		time.Sleep(plan.JobRetention + time.Minute)

		if _, err = jobs.Start(t.Context(), "owner", done); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		synctest.Wait()
		if _, ok := jobs.Result(stale); ok {
			t.Error("stale job was not removed")
		}
	})
}

func TestJobs_UnknownID(t *testing.T) {
	if _, ok := newJobs(t).Result("missing"); ok {
		t.Error("Result() reported an unknown job")
	}
}
