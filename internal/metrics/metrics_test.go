package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRecordRequest(t *testing.T) {
	RecordRequest("GET", "/test", 200, 100*time.Millisecond)
	RecordRequest("POST", "/test", 201, 50*time.Millisecond)
	RecordRequest("GET", "/test", 404, 10*time.Millisecond)
}

func TestRecordReminderCreated(t *testing.T) {
	RecordReminderCreated("email")
	RecordReminderCreated("push")
}

func TestRecordDeliveryAttempt(t *testing.T) {
	RecordDeliveryAttempt("email", "sent")
	RecordDeliveryAttempt("push", "error")
}

func TestRecordJobLifecycle(t *testing.T) {
	RecordJobScheduled()
	RecordJobFired()
	RecordJobCancelled()
}

func TestCallbackGauge(t *testing.T) {
	CallbackStarted()
	CallbackStarted()
	CallbackFinished()
	CallbackFinished()
}

func TestRecordFireLag(t *testing.T) {
	RecordFireLag(50 * time.Millisecond)
	RecordFireLag(2 * time.Second)
}

func TestHandler(t *testing.T) {
	handler := Handler()
	if handler == nil {
		t.Fatal("Handler should not return nil")
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()
	Middleware(inner).ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("middleware must pass the status through, got %d", rec.Code)
	}
}
