package transport

import (
	"errors"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// BuildHeader
// ---------------------------------------------------------------------------

func TestBuildHeader(t *testing.T) {
	got := BuildHeader("www.example.com", "/index.html")
	want := "GET /index.html HTTP/1.1\r\nHost: www.example.com\r\nConnection: Close\r\n\r\n"
	if got != want {
		t.Errorf("BuildHeader = %q, want %q", got, want)
	}
}

func TestBuildHeaderShape(t *testing.T) {
	tests := []struct {
		host string
		path string
	}{
		{"www.example.com", "/"},
		{"localhost", "/a/b?c=d"},
		{"10.0.0.1", "*"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.host+tt.path, func(t *testing.T) {
			h := BuildHeader(tt.host, tt.path)
			if !strings.HasSuffix(h, "\r\n\r\n") {
				t.Fatalf("header %q does not end with CRLFCRLF", h)
			}
			lines := strings.Split(strings.TrimSuffix(h, "\r\n\r\n"), "\r\n")
			requestLines, hostLines := 0, 0
			for _, l := range lines {
				if l == "GET "+tt.path+" HTTP/1.1" {
					requestLines++
				}
				if l == "Host: "+tt.host {
					hostLines++
				}
			}
			if requestLines != 1 {
				t.Errorf("request line count = %d, want 1 in %q", requestLines, h)
			}
			if hostLines != 1 {
				t.Errorf("host line count = %d, want 1 in %q", hostLines, h)
			}
		})
	}
}

func TestRequestWithDefaults(t *testing.T) {
	r := (&Request{}).WithDefaults()
	if r.Host != DefaultHost || r.Path != DefaultPath || r.Port != DefaultPort {
		t.Errorf("WithDefaults = %+v, want %s %s %d", r, DefaultHost, DefaultPath, DefaultPort)
	}

	orig := &Request{Host: "h", Path: "/p", Port: 8080}
	got := orig.WithDefaults()
	if *got != *orig {
		t.Errorf("WithDefaults changed explicit fields: %+v", got)
	}
	if got == orig {
		t.Error("WithDefaults returned the receiver, want a copy")
	}

	var nilReq *Request
	if nilReq.WithDefaults().Host != DefaultHost {
		t.Error("WithDefaults on nil request did not apply defaults")
	}
}

func TestRequestTarget(t *testing.T) {
	r := NewRequest("example.org", "/x", 8080)
	if got := r.Addr(); got != "example.org:8080" {
		t.Errorf("Addr = %q", got)
	}
	if got := r.Target(); got != "example.org:8080/x" {
		t.Errorf("Target = %q", got)
	}
	if got := NewRequest("::1", "/", 80).Addr(); got != "[::1]:80" {
		t.Errorf("Addr for IPv6 = %q", got)
	}
}

// ---------------------------------------------------------------------------
// SplitResponse
// ---------------------------------------------------------------------------

func TestSplitResponse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantHeader string
		wantBody   string
	}{
		{
			name:       "header and body",
			raw:        "HTTP/1.1 200 OK\r\nHost: x\r\n\r\nhello",
			wantHeader: "HTTP/1.1 200 OK\r\nHost: x",
			wantBody:   "hello",
		},
		{
			name:       "first delimiter wins",
			raw:        "HTTP/1.1 200 OK\r\n\r\na\r\n\r\nb",
			wantHeader: "HTTP/1.1 200 OK",
			wantBody:   "a\r\n\r\nb",
		},
		{
			name:       "no delimiter",
			raw:        "HTTP/1.1 200 OK\r\nHost: x",
			wantHeader: "HTTP/1.1 200 OK\r\nHost: x",
			wantBody:   "",
		},
		{
			name:       "empty input",
			raw:        "",
			wantHeader: "",
			wantBody:   "",
		},
		{
			name:       "empty body",
			raw:        "HTTP/1.1 204 No Content\r\n\r\n",
			wantHeader: "HTTP/1.1 204 No Content",
			wantBody:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, b := SplitResponse([]byte(tt.raw))
			if string(h) != tt.wantHeader {
				t.Errorf("header = %q, want %q", h, tt.wantHeader)
			}
			if string(b) != tt.wantBody {
				t.Errorf("body = %q, want %q", b, tt.wantBody)
			}
			if b == nil {
				t.Error("body is nil, want empty slice")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ParseHeader
// ---------------------------------------------------------------------------

func TestParseHeaderLegacyBareCR(t *testing.T) {
	block := "HTTP/1.1 200 OK\rContent-Type: text/html\rContent-Length: 5"
	headers, code, err := ParseHeader([]byte(block), ModeLegacyCR)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if code != "200" {
		t.Errorf("code = %q, want 200", code)
	}
	want := map[string]string{
		"content-type":   " text/html",
		"content-length": " 5",
	}
	assertHeaders(t, headers, want)
}

func TestParseHeaderLegacyKeepsLineFeed(t *testing.T) {
	block := "HTTP/1.1 404 Not Found\r\nServer: test\r\nX-A: b"
	headers, code, err := ParseHeader([]byte(block), ModeLegacyCR)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if code != "404" {
		t.Errorf("code = %q, want 404", code)
	}
	assertHeaders(t, headers, map[string]string{
		"\nserver": " test",
		"\nx-a":    " b",
	})
}

func TestParseHeaderCRLF(t *testing.T) {
	block := "HTTP/1.1 301 Moved Permanently\r\nLocation: http://Example.com/\r\nX-Dup: one\r\nx-dup: two\r\nX-Colon: a:b"
	headers, code, err := ParseHeader([]byte(block), ModeCRLF)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if code != "301" {
		t.Errorf("code = %q, want 301", code)
	}
	assertHeaders(t, headers, map[string]string{
		"location": " http://Example.com/",
		"x-dup":    " two",
		"x-colon":  " a:b",
	})
}

func TestParseHeaderStatusOnly(t *testing.T) {
	headers, code, err := ParseHeader([]byte("HTTP/1.0 200 OK"), ModeCRLF)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if code != "200" {
		t.Errorf("code = %q", code)
	}
	if len(headers) != 0 {
		t.Errorf("headers = %v, want empty", headers)
	}
}

func TestParseHeaderCodeNotValidated(t *testing.T) {
	_, code, err := ParseHeader([]byte("ICY abc OK"), ModeCRLF)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if code != "abc" {
		t.Errorf("code = %q, want abc", code)
	}
}

func TestParseHeaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		block string
		mode  ParseMode
	}{
		{"single token status legacy", "HTTP/1.1\r", ModeLegacyCR},
		{"single token status crlf", "HTTP/1.1\r\nHost: x", ModeCRLF},
		{"empty block", "", ModeCRLF},
		{"header without colon legacy", "HTTP/1.1 200 OK\rBroken header", ModeLegacyCR},
		{"header without colon crlf", "HTTP/1.1 200 OK\r\nHost: x\r\nBroken", ModeCRLF},
		{"trailing empty line", "HTTP/1.1 200 OK\r\nHost: x\r\n", ModeCRLF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseHeader([]byte(tt.block), tt.mode)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrParse) {
				t.Errorf("error %v is not ErrParse", err)
			}
			if KindOf(err) != KindParse {
				t.Errorf("KindOf = %v, want parse", KindOf(err))
			}
		})
	}
}

func TestParseHeaderIndependentMaps(t *testing.T) {
	block := []byte("HTTP/1.1 200 OK\r\nA: 1")
	h1, _, err := ParseHeader(block, ModeCRLF)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	h1["a"] = "changed"
	h1["b"] = "added"

	h2, _, err := ParseHeader(block, ModeCRLF)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	assertHeaders(t, h2, map[string]string{"a": " 1"})
}

func TestParseModeString(t *testing.T) {
	if ModeCRLF.String() != "crlf" || ModeLegacyCR.String() != "legacy-cr" {
		t.Errorf("unexpected mode names %q %q", ModeCRLF, ModeLegacyCR)
	}
	if ParseMode(9).String() != "unknown" {
		t.Errorf("ParseMode(9) = %q", ParseMode(9))
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestErrorFormatting(t *testing.T) {
	err := newError(KindReceive, "read", errors.New("reset"))
	if got := err.Error(); got != "read: receive error: reset" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrReceive) {
		t.Error("errors.Is(err, ErrReceive) = false")
	}
	if errors.Is(err, ErrTransmit) {
		t.Error("errors.Is(err, ErrTransmit) = true")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("KindOf(plain) should be unknown")
	}
	if Kind(42).String() != "unknown" {
		t.Errorf("Kind(42) = %q", Kind(42))
	}
}

func assertHeaders(t *testing.T, got, want map[string]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d headers %q, want %d %q", len(got), got, len(want), want)
	}
	for k, v := range want {
		gv, ok := got[k]
		if !ok {
			t.Errorf("missing header %q in %q", k, got)
			continue
		}
		if gv != v {
			t.Errorf("header %q = %q, want %q", k, gv, v)
		}
	}
}
