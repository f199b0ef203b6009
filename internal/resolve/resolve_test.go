package resolve

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestProberIsIndirect(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/html; charset=utf-8", true},
		{"text/plain", true},
		{"application/octet-stream", false},
		{"video/mp4", false},
		{"", false},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if tt.contentType != "" {
				w.Header().Set("Content-Type", tt.contentType)
			}
		}))
		p := NewProber(srv.Client())
		if got := p.IsIndirect(context.Background(), srv.URL); got != tt.want {
			t.Errorf("IsIndirect with %q = %v, want %v", tt.contentType, got, tt.want)
		}
		srv.Close()
	}
}

func TestProberUnreachableHost(t *testing.T) {
	p := NewProber(nil)
	if p.IsIndirect(context.Background(), "http://127.0.0.1:1/nothing") {
		t.Error("unreachable host must not be treated as indirect")
	}
}

type stubResolver struct {
	link string
	err  error
}

func (s stubResolver) Resolve(context.Context, string) (string, error) {
	return s.link, s.err
}

func TestChainedResolver(t *testing.T) {
	chain := ChainedResolver{
		stubResolver{err: errors.New("not mine")},
		stubResolver{link: "https://cdn.example.com/file.zip"},
	}
	got, err := chain.Resolve(context.Background(), "https://page.example.com")
	if err != nil || got != "https://cdn.example.com/file.zip" {
		t.Fatalf("Resolve = %q, %v", got, err)
	}
}

func TestChainedResolverFatalStopsChain(t *testing.T) {
	chain := ChainedResolver{
		stubResolver{err: errors.New(FatalPrefix + " link is dead")},
		stubResolver{link: "https://should.not/reach"},
	}
	if _, err := chain.Resolve(context.Background(), "x"); !IsFatal(err) {
		t.Fatalf("want fatal error, got %v", err)
	}
}
