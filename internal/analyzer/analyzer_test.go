package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmynk/nbbang/internal/models"
)

func TestAnalyzeSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		if got := r.FormValue("prompt"); got != "split dinner" {
			t.Errorf("prompt = %q", got)
		}
		files := r.MultipartForm.File["images[]"]
		if len(files) != 2 {
			t.Errorf("expected 2 images, got %d", len(files))
			return
		}
		f, _ := files[0].Open()
		data, _ := io.ReadAll(f)
		if string(data) != "jpeg-bytes" {
			t.Errorf("image data = %q", data)
		}
		w.Write([]byte(`{"meeting":{"id":1}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL + "/"})
	out, err := c.Analyze(context.Background(), []Image{
		{Filename: "a.jpg", ContentType: "image/jpeg", Data: []byte("jpeg-bytes")},
		{Filename: "b.png", Data: []byte("png-bytes")},
	}, "split dinner")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if string(out) != `{"meeting":{"id":1}}` {
		t.Errorf("body = %s", out)
	}
}

func TestEncodeForm(t *testing.T) {
	body, contentType, err := EncodeForm([]Image{
		{Filename: "a.jpg", ContentType: "image/jpeg", Data: []byte("jpeg")},
		{Filename: "b.bin", Data: []byte("raw")},
	}, "two receipts")
	if err != nil {
		t.Fatalf("EncodeForm failed: %v", err)
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("content type = %q, %v", contentType, err)
	}

	type part struct{ name, filename, contentType, data string }
	want := []part{
		{"images[]", "a.jpg", "image/jpeg", "jpeg"},
		{"images[]", "b.bin", "application/octet-stream", "raw"},
		{"prompt", "", "", "two receipts"},
	}
	mr := multipart.NewReader(body, params["boundary"])
	for i, w := range want {
		p, err := mr.NextPart()
		if err != nil {
			t.Fatalf("part %d: %v", i, err)
		}
		data, _ := io.ReadAll(p)
		got := part{p.FormName(), p.FileName(), p.Header.Get("Content-Type"), string(data)}
		if got != w {
			t.Errorf("part %d = %+v, want %+v", i, got, w)
		}
	}
	if _, err := mr.NextPart(); err != io.EOF {
		t.Errorf("expected end of form, got %v", err)
	}
}

func TestModifySendsDraft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req modifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		if req.Prompt != "remove Lee" || req.Draft.MeetingName != "Jeju" {
			t.Errorf("unexpected request %+v", req)
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL})
	if _, err := c.Modify(context.Background(), models.Draft{MeetingName: "Jeju"}, "remove Lee"); err != nil {
		t.Fatalf("Modify failed: %v", err)
	}
}

func TestUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(Config{URL: srv.URL}).Analyze(context.Background(), nil, "x")
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Status != http.StatusBadGateway || ue.Body != "model overloaded" {
		t.Errorf("expected UpstreamError 502, got %v", err)
	}
}

func TestDisabled(t *testing.T) {
	c := NewClient(Config{})
	if c.Enabled() {
		t.Error("client without URL should be disabled")
	}
	if _, err := c.Analyze(context.Background(), nil, "x"); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}
