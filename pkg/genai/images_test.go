package genai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/curiousdates/pkg/admin"
	"github.com/vanderheijden86/curiousdates/pkg/model"
)

func TestNewHTTPImageSource_RejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "ftp://host"} {
		if _, err := NewHTTPImageSource(raw, "", time.Second); err == nil {
			t.Errorf("NewHTTPImageSource(%q) accepted", raw)
		}
	}
}

func TestHTTPImageSource_EventImage(t *testing.T) {
	var got imageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images/generations" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(got.Prompt, "b64"):
			_, _ = io.WriteString(w, `{"data":[{"b64_json":"iVBORw0KGgo="}]}`)
		case strings.Contains(got.Prompt, "none"):
			_, _ = io.WriteString(w, `{"data":[]}`)
		case strings.Contains(got.Prompt, "refuse"):
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"message":"prompt rejected"}}`)
		default:
			_, _ = io.WriteString(w, `{"data":[{"url":"http://img.local/1.png"}]}`)
		}
	}))
	defer srv.Close()

	src, err := NewHTTPImageSource(srv.URL+"/", "sd-turbo", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	url, err := src.EventImage(ctx, "a harbour at dawn")
	if err != nil || url != "http://img.local/1.png" {
		t.Fatalf("url = %q, err = %v", url, err)
	}
	if got.Model != "sd-turbo" || got.N != 1 || got.Size != DefaultImageSize || got.Prompt != "a harbour at dawn" {
		t.Errorf("request = %+v", got)
	}

	url, err = src.EventImage(ctx, "b64 please")
	if err != nil || url != "data:image/png;base64,iVBORw0KGgo=" {
		t.Errorf("b64 url = %q, err = %v", url, err)
	}

	if _, err := src.EventImage(ctx, "none"); err == nil {
		t.Error("empty data should fail")
	}
	_, err = src.EventImage(ctx, "refuse")
	if err == nil || !strings.Contains(err.Error(), "prompt rejected") {
		t.Errorf("server error = %v", err)
	}
}

func TestGenerateTimeline_HTTPImageSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req imageRequest
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &req)
		if strings.Contains(req.Prompt, "FAIL") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `{"data":[{"url":"http://img.local/ok.png"}]}`)
	}))
	defer srv.Close()

	src, err := NewHTTPImageSource(srv.URL, "", 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	reply := `{"title":"T","description":"D","events":[
		{"year":"1900","title":"a","description":"steam ships"},
		{"year":"1901","title":"b","description":"FAIL"}]}`
	store := admin.NewMemoryStore("")
	svc := NewService(fixedReply(reply), store, WithClock(fixedNow), WithImageSource(src))

	tl, err := svc.GenerateTimeline(context.Background(), "what if", model.CategoryAlternate)
	if err != nil {
		t.Fatalf("GenerateTimeline: %v", err)
	}
	if tl.Events[0].ImageURL != "http://img.local/ok.png" {
		t.Errorf("image 0 = %q", tl.Events[0].ImageURL)
	}
	if want := PlaceholderImage(1, 1700000000000); tl.Events[1].ImageURL != want {
		t.Errorf("image 1 = %q, want placeholder", tl.Events[1].ImageURL)
	}
	if n := store.Stats().TotalCalls; n != 2 {
		t.Errorf("total calls = %d, want text plus one image", n)
	}
}
