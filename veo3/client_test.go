package veo3

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clientTestCfg(apiBase string) func() *Client {
	return func() *Client {
		cfg := retryTestCfg()
		cfg.APIBase = apiBase
		cfg.APIKey = "test-key"
		cfg.SubmitFloorSeconds = 0 // no floor in tests
		return NewClient(cfg)
	}
}

func TestClientSubmit(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/veo/generate" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"code":200,"data":{"taskId":"task-42"}}`)
	}))
	defer srv.Close()

	c := clientTestCfg(srv.URL)()
	taskID, err := c.Submit(context.Background(), "a prompt", SubmitOptions{
		AspectRatio:       "9:16",
		DurationSeconds:   8,
		IdentitySeed:      30001,
		ReferenceImageURL: "https://cdn.example/ana.png",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if taskID != "task-42" {
		t.Errorf("taskID = %q", taskID)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["model"] != "veo3_fast" || gotBody["aspectRatio"] != "9:16" {
		t.Errorf("body = %v", gotBody)
	}
	imgs, _ := gotBody["imageUrls"].([]interface{})
	if len(imgs) != 1 || imgs[0] != "https://cdn.example/ana.png" {
		t.Errorf("imageUrls = %v", gotBody["imageUrls"])
	}
}

func TestClientSubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"code":422,"msg":"prompt flagged by content policy"}`)
	}))
	defer srv.Close()

	c := clientTestCfg(srv.URL)()
	_, err := c.Submit(context.Background(), "a prompt", SubmitOptions{})
	if err == nil {
		t.Fatal("want error for non-200 provider code")
	}
}

func TestClientSubmit429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := clientTestCfg(srv.URL)()
	_, err := c.Submit(context.Background(), "a prompt", SubmitOptions{})
	if err == nil {
		t.Fatal("want error for HTTP 429")
	}
	// the orchestrator's classifier keys off this text
	if got := err.Error(); !strings.Contains(got, "429") {
		t.Errorf("429 not surfaced in error text: %q", got)
	}
}

func TestClientPollStates(t *testing.T) {
	responses := map[string]string{
		"running":   `{"code":200,"data":{"taskId":"t","successFlag":0}}`,
		"succeeded": `{"code":200,"data":{"taskId":"t","successFlag":1,"response":{"resultUrls":["https://cdn.example/v.mp4"]}}}`,
		"failed":    `{"code":200,"data":{"taskId":"t","successFlag":2,"errorMessage":"public figure detected"}}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, responses[r.URL.Query().Get("taskId")])
	}))
	defer srv.Close()

	c := clientTestCfg(srv.URL)()

	res, err := c.Poll(context.Background(), "running")
	if err != nil || res.Status != StatusRunning {
		t.Errorf("running: res=%+v err=%v", res, err)
	}
	res, err = c.Poll(context.Background(), "succeeded")
	if err != nil || res.Status != StatusSucceeded || res.ResultURL != "https://cdn.example/v.mp4" {
		t.Errorf("succeeded: res=%+v err=%v", res, err)
	}
	res, err = c.Poll(context.Background(), "failed")
	if err != nil || res.Status != StatusFailed || res.ErrorMessage != "public figure detected" {
		t.Errorf("failed: res=%+v err=%v", res, err)
	}
}

func TestClientDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("binary video payload"))
	}))
	defer srv.Close()

	c := clientTestCfg(srv.URL)()
	dest := filepath.Join(t.TempDir(), "session", "segment_00.mp4")
	if err := c.Download(context.Background(), srv.URL+"/v.mp4", dest); err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "binary video payload" {
		t.Errorf("downloaded content = %q", data)
	}
}

func TestStatusIsTerminal(t *testing.T) {
	if StatusRunning.IsTerminal() || StatusPending.IsTerminal() {
		t.Error("running/pending must not be terminal")
	}
	if !StatusSucceeded.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Error("succeeded/failed must be terminal")
	}
}
