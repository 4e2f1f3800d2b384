package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/prediction"
)

func Test_predictionApi_submit(t *testing.T) {
	deps := setup(t)
	createUser(t, deps, "Awe", "awe@test.cd", 5)
	createUser(t, deps, "Broke", "broke@test.cd", 0.5)

	tests := []httpTest{
		{
			name:     "empty body",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{
				"user_id":   "this field is required",
				"lesson_id": "this field is required",
			}),
		},
		{
			name:     "unknown user",
			body:     []byte(`{"user_id":99,"lesson_id":1}`),
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "account not found"}),
		},
		{
			name:     "insufficient funds",
			body:     []byte(`{"user_id":2,"lesson_id":1}`),
			wantCode: http.StatusPaymentRequired,
			wantData: marshallObj(t, httpErr{Error: "insufficient funds"}),
		},
		{
			name:     "accepted",
			body:     []byte(`{"user_id":1,"lesson_id":1}`),
			wantCode: http.StatusAccepted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/predictions", tt.body)
			deps.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the accepted submission is pending, billed and queued
	var accepted prediction.Request
	txns, err := deps.accRepo.QueryTransactionsByUser(newCtx(), 1, 0, 10)
	if err != nil {
		t.Fatalf("QueryTransactionsByUser() failed: %v", err)
	}
	if len(txns) != 1 {
		t.Errorf("len(txns) = %d; want 1", len(txns))
	}
	tasks := deps.queue.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("len(tasks) = %d; want 1", len(tasks))
	}

	req, rec := newRequest(http.MethodGet, "/v1/predictions/1")
	deps.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d; want %d", rec.Code, http.StatusOK)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if accepted.Status != prediction.StatusPending {
		t.Errorf("Status = %s; want %s", accepted.Status, prediction.StatusPending)
	}
	if accepted.Cost != 1 {
		t.Errorf("Cost = %v; want 1", accepted.Cost)
	}
}

func Test_predictionApi_submit_notQueued(t *testing.T) {
	deps := setup(t)
	createUser(t, deps, "Awe", "awe@test.cd", 5)
	deps.queue.FailPublishWith(errors.New("broker down"))

	tt := httpTest{
		wantCode: http.StatusInternalServerError,
		wantData: marshallObj(t, httpErr{Error: "prediction request billed but not queued"}),
	}
	req, rec := newRequest(http.MethodPost, "/v1/predictions", []byte(`{"user_id":1,"lesson_id":1}`))
	deps.server.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)

	// the request was billed and stays pending for later resolution
	acc, err := deps.billSvc.Account(newCtx(), 1)
	if err != nil {
		t.Fatalf("Account() failed: %v", err)
	}
	if acc.Balance != 4 {
		t.Errorf("Balance = %v; want 4", acc.Balance)
	}
}

func Test_predictionApi_query(t *testing.T) {
	deps := setup(t)
	createUser(t, deps, "Awe", "awe@test.cd", 5)
	createUser(t, deps, "Ben", "ben@test.cd", 5)

	submit := func(userID, lessonID int) {
		req, rec := newRequest(http.MethodPost, "/v1/predictions", marshallObj(t, SubmitRequest{UserID: userID, LessonID: lessonID}))
		deps.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("submit: code = %d; want %d", rec.Code, http.StatusAccepted)
		}
	}
	submit(1, 1)
	submit(1, 2)
	submit(2, 1)

	var all, mine []prediction.Request

	req, rec := newRequest(http.MethodGet, "/v1/predictions")
	deps.server.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len(all) = %d; want 3", len(all))
	}

	req, rec = newRequest(http.MethodGet, "/v1/users/1/predictions")
	deps.server.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &mine); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("len(mine) = %d; want 2", len(mine))
	}
	for _, r := range mine {
		if r.UserID != 1 {
			t.Errorf("UserID = %d; want 1", r.UserID)
		}
	}
}
