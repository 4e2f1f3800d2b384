package prediction_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/prediction"
	logsvc "github.com/trezcool/darasa/services/logger"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

type processorDeps struct {
	*testDeps
	attRepo attendance.Repository
	proc    *prediction.Processor
}

func setupProcessor(t *testing.T, predict prediction.Predictor) *processorDeps {
	deps := setup(t)
	attRepo := inmemdb.NewAttendanceRepository(deps.db)
	attSvc := attendance.NewService(attRepo)
	logger := logsvc.NewConsoleLogger(log.New(ioutil.Discard, "", 0))
	if predict == nil {
		predict = prediction.AttendanceRatio
	}
	return &processorDeps{
		testDeps: deps,
		attRepo:  attRepo,
		proc:     prediction.NewProcessor(deps.svc, attSvc, predict, nil, nil, logger),
	}
}

// seedHistory records userID's attendance for count lessons of one subject,
// attending the first `attended` of them.
func (d *processorDeps) seedHistory(t *testing.T, userID, count, attended int) {
	ctx := context.Background()
	sub, err := d.attRepo.CreateSubject(ctx, attendance.Subject{Name: "Maths"})
	if err != nil {
		t.Fatalf("seedHistory() failed: %v", err)
	}
	now := time.Now().UTC()
	for i := 0; i < count; i++ {
		les, err := d.attRepo.CreateLesson(ctx, attendance.Lesson{SubjectID: sub.ID, DateTime: now.Add(time.Duration(i) * time.Hour)})
		if err != nil {
			t.Fatalf("seedHistory() failed: %v", err)
		}
		att := attendance.Attendance{UserID: userID, LessonID: les.ID, Attended: i < attended}
		if _, err = d.attRepo.CreateAttendance(ctx, att); err != nil {
			t.Fatalf("seedHistory() failed: %v", err)
		}
	}
}

func (d *processorDeps) submit(t *testing.T, userID, lessonID int) (prediction.Request, []byte) {
	req, err := d.svc.Submit(context.Background(), userID, lessonID)
	if err != nil {
		t.Fatalf("submit() failed: %v", err)
	}
	task, ok := d.queue.Pop()
	if !ok {
		t.Fatal("submit() did not queue a task")
	}
	body, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("submit() failed: %v", err)
	}
	return req, body
}

func TestProcessor_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("completes with the attendance ratio", func(t *testing.T) {
		deps := setupProcessor(t, nil)
		deps.fundAccount(t, 1, 5)
		deps.seedHistory(t, 1, 4, 3)
		req, body := deps.submit(t, 1, 99)

		deps.proc.Process(ctx, body)

		done, err := deps.repo.GetRequestByID(ctx, req.ID)
		if err != nil {
			t.Fatalf("GetRequestByID() failed: %v", err)
		}
		if done.Status != prediction.StatusCompleted {
			t.Fatalf("Status = %s; want %s", done.Status, prediction.StatusCompleted)
		}
		if done.Result == nil || done.Result.Probability != 0.75 {
			t.Errorf("Result = %+v; want probability 0.75", done.Result)
		}
		wantPred := fmt.Sprintf("Predicted probability for lesson %d: 0.75", 99)
		if done.Result.Prediction != wantPred {
			t.Errorf("Prediction = %q; want %q", done.Result.Prediction, wantPred)
		}
	})

	t.Run("no history defaults to even odds", func(t *testing.T) {
		deps := setupProcessor(t, nil)
		deps.fundAccount(t, 1, 5)
		req, body := deps.submit(t, 1, 99)

		deps.proc.Process(ctx, body)

		done, _ := deps.repo.GetRequestByID(ctx, req.ID)
		if done.Status != prediction.StatusCompleted {
			t.Fatalf("Status = %s; want %s", done.Status, prediction.StatusCompleted)
		}
		if done.Result.Probability != 0.5 {
			t.Errorf("Probability = %v; want 0.5", done.Result.Probability)
		}
	})

	t.Run("predictor error fails the request without refund", func(t *testing.T) {
		predict := func(history []attendance.HistoryRecord, lessonID int) (prediction.Result, error) {
			return prediction.Result{}, errors.New("model exploded")
		}
		deps := setupProcessor(t, predict)
		deps.fundAccount(t, 1, 5)
		req, body := deps.submit(t, 1, 99)

		deps.proc.Process(ctx, body)

		done, _ := deps.repo.GetRequestByID(ctx, req.ID)
		if done.Status != prediction.StatusFailed {
			t.Fatalf("Status = %s; want %s", done.Status, prediction.StatusFailed)
		}
		if done.ErrorMessage == "" {
			t.Error("ErrorMessage is empty")
		}
		if got := deps.balance(t, 1); got != 4 {
			t.Errorf("balance = %v; want 4", got)
		}
	})

	t.Run("identifiable bad task fails the request", func(t *testing.T) {
		deps := setupProcessor(t, nil)
		deps.fundAccount(t, 1, 5)
		req, _ := deps.submit(t, 1, 99)

		body := []byte(fmt.Sprintf(`{"id":"x","kind":"bogus.v9","prediction_id":%d,"user_id":1,"lesson_id":99}`, req.ID))
		deps.proc.Process(ctx, body)

		done, _ := deps.repo.GetRequestByID(ctx, req.ID)
		if done.Status != prediction.StatusFailed {
			t.Fatalf("Status = %s; want %s", done.Status, prediction.StatusFailed)
		}
	})

	t.Run("unidentifiable poison is dropped", func(t *testing.T) {
		deps := setupProcessor(t, nil)
		deps.fundAccount(t, 1, 5)
		req, _ := deps.submit(t, 1, 99)

		deps.proc.Process(ctx, []byte(`not even json`))
		deps.proc.Process(ctx, []byte(`{"kind":"attendance.v1","user_id":1,"lesson_id":99}`))

		// the pending request is untouched
		stored, _ := deps.repo.GetRequestByID(ctx, req.ID)
		if stored.Status != prediction.StatusPending {
			t.Errorf("Status = %s; want %s", stored.Status, prediction.StatusPending)
		}
	})

	t.Run("redelivery after completion is a no-op", func(t *testing.T) {
		deps := setupProcessor(t, nil)
		deps.fundAccount(t, 1, 5)
		deps.seedHistory(t, 1, 2, 2)
		req, body := deps.submit(t, 1, 99)

		deps.proc.Process(ctx, body)
		first, _ := deps.repo.GetRequestByID(ctx, req.ID)

		deps.proc.Process(ctx, body) // redelivered
		second, _ := deps.repo.GetRequestByID(ctx, req.ID)

		if second.Status != prediction.StatusCompleted {
			t.Fatalf("Status = %s; want %s", second.Status, prediction.StatusCompleted)
		}
		if !second.CompletedAt.Equal(*first.CompletedAt) {
			t.Errorf("CompletedAt changed on redelivery: %v != %v", second.CompletedAt, first.CompletedAt)
		}
	})
}

// Two workers fulfilling two requests for the same user, the later submission
// first: each outcome must land on its own request.
func TestProcessor_Process_reverseOrderFulfillment(t *testing.T) {
	ctx := context.Background()
	deps := setupProcessor(t, nil)
	deps.fundAccount(t, 1, 5)
	deps.seedHistory(t, 1, 4, 3)

	req1, body1 := deps.submit(t, 1, 7)
	req2, body2 := deps.submit(t, 1, 8)

	otherWorker := prediction.NewProcessor(
		deps.svc,
		attendance.NewService(deps.attRepo),
		prediction.AttendanceRatio,
		nil, nil,
		logsvc.NewConsoleLogger(log.New(ioutil.Discard, "", 0)),
	)

	var wg sync.WaitGroup
	secondDone := make(chan struct{})
	wg.Add(2)
	go func() {
		defer wg.Done()
		otherWorker.Process(ctx, body2)
		close(secondDone)
	}()
	go func() {
		defer wg.Done()
		<-secondDone
		deps.proc.Process(ctx, body1)
	}()
	wg.Wait()

	for _, tc := range []struct {
		req      prediction.Request
		lessonID int
	}{
		{req1, 7},
		{req2, 8},
	} {
		done, err := deps.repo.GetRequestByID(ctx, tc.req.ID)
		if err != nil {
			t.Fatalf("GetRequestByID() failed: %v", err)
		}
		if done.Status != prediction.StatusCompleted {
			t.Fatalf("request %d Status = %s; want %s", tc.req.ID, done.Status, prediction.StatusCompleted)
		}
		if done.LessonID != tc.lessonID {
			t.Errorf("request %d LessonID = %d; want %d", tc.req.ID, done.LessonID, tc.lessonID)
		}
		want := fmt.Sprintf("Predicted probability for lesson %d: 0.75", tc.lessonID)
		if done.Result == nil || done.Result.Prediction != want {
			t.Errorf("request %d Result = %+v; want prediction %q", tc.req.ID, done.Result, want)
		}
	}
}
