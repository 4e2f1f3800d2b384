package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/billing"
	"github.com/trezcool/darasa/core/prediction"
	"github.com/trezcool/darasa/core/user"
	logsvc "github.com/trezcool/darasa/services/logger"
	queuesvc "github.com/trezcool/darasa/services/queue"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

type serverDeps struct {
	server  *Server
	db      *inmemdb.DB
	queue   *queuesvc.InmemQueue
	usrSvc  *user.Service
	billSvc *billing.Service
	attSvc  *attendance.Service
	accRepo billing.Repository
}

func setup(t *testing.T) *serverDeps {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	conf := &core.Config{
		TestMode:       true,
		AppName:        "Darasa",
		PredictionCost: 1,
	}
	logger := logsvc.NewConsoleLogger(log.New(ioutil.Discard, "", 0))
	queue := queuesvc.NewInmemQueue()
	accRepo := inmemdb.NewAccountRepository(db)

	usrSvc := user.NewService(db, inmemdb.NewUserRepository(db), accRepo)
	billSvc := billing.NewService(db, accRepo)
	attSvc := attendance.NewService(inmemdb.NewAttendanceRepository(db))
	predSvc := prediction.NewService(db, inmemdb.NewPredictionRepository(db), accRepo, queue, conf, logger)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		BillingSvc:     billSvc,
		AttendanceSvc:  attSvc,
		PredictionSvc:  predSvc,
		Validate:       validate,
		Translator:     translator,
	})
	return &serverDeps{
		server:  server,
		db:      db,
		queue:   queue,
		usrSvc:  usrSvc,
		billSvc: billSvc,
		attSvc:  attSvc,
		accRepo: accRepo,
	}
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func createUser(t *testing.T, deps *serverDeps, name, email string, balance float64) user.User {
	usr, err := deps.usrSvc.Create(newCtx(), user.NewUser{Name: name, Email: email, Password: "s3cr3tP#one"})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	if balance > 0 {
		if _, err = deps.accRepo.ApplyBalanceDelta(newCtx(), usr.ID, balance); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	return usr
}

func newCtx() context.Context { return context.Background() }
