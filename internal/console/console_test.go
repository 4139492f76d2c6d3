package console

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerSetsRobotsHeader(t *testing.T) {
	handler := Handler()
	req := httptest.NewRequest(http.MethodGet, "/console/", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get(RobotsTagHeader); got != RobotsTagValue {
		t.Fatalf("expected %s header %q, got %q", RobotsTagHeader, RobotsTagValue, got)
	}
}

func TestHandlerServesDashboard(t *testing.T) {
	handler := Handler()
	req := httptest.NewRequest(http.MethodGet, "/console/", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content-type = %q", ct)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "/v1/analyze") {
		t.Fatal("dashboard must post to the analyze endpoint")
	}
	if !strings.Contains(body, "PromptGuard Console") {
		t.Fatal("dashboard title missing")
	}
}
