// Copyright 2026 The restd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package request

import (
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/restd/device"
	"github.com/packetd/restd/mediatype"
)

func parseRequest(t *testing.T, raw string) (*Request, *mediatype.Registry) {
	t.Helper()

	reg := mediatype.NewRegistry()
	req := New(device.NewBuffered([]byte(raw)), reg)
	t.Cleanup(req.Free)
	require.True(t, req.Parse())
	return req, reg
}

func TestParseRequestLine(t *testing.T) {
	req, _ := parseRequest(t, "GET /index.html HTTP/1.1\r\n\r\n")
	assert.Equal(t, MethodGet, req.Method())
	assert.Equal(t, Version11, req.HTTPVersion())
	assert.Equal(t, "/index.html", string(req.Path()))
	assert.True(t, req.KeepsConnection())
}

func TestParseRequestLineRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "unknown method",
			input: "PATCH / HTTP/1.1\r\n\r\n",
		},
		{
			name:  "lowercase method",
			input: "get / HTTP/1.1\r\n\r\n",
		},
		{
			name:  "method prefix only",
			input: "GETX / HTTP/1.1\r\n\r\n",
		},
		{
			name:  "unknown version",
			input: "GET / HTTP/9.9\r\n\r\n",
		},
		{
			name:  "bad percent encoding in target",
			input: "GET /a%zz HTTP/1.1\r\n\r\n",
		},
		{
			name:  "missing version",
			input: "GET /\r\n\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := mediatype.NewRegistry()
			req := New(device.NewBuffered([]byte(tt.input)), reg)
			defer req.Free()
			assert.False(t, req.Parse())
		})
	}
}

func TestParseHeaders(t *testing.T) {
	req, _ := parseRequest(t, "GET /search?q=go&page=2#frag HTTP/1.1\r\n"+
		"User-Agent: curl/8.0\r\n"+
		"From: someone@example.com\r\n"+
		"Referer: http://example.com/\r\n"+
		"Date: Sun, 06 Nov 1994 08:49:37 GMT\r\n"+
		"X-Custom: hello\r\n"+
		"\r\n")

	assert.Equal(t, "curl/8.0", string(req.UserAgent()))
	assert.Equal(t, "someone@example.com", string(req.From()))
	assert.Equal(t, "http://example.com/", string(req.Referer()))
	assert.Equal(t, int64(784111777), req.Date())
	assert.Equal(t, "hello", string(req.HeaderValue("x-custom")))
	assert.Equal(t, "hello", string(req.HeaderValue("X-Custom")))
	assert.Nil(t, req.HeaderValue("x-missing"))

	assert.Equal(t, "go", string(req.Query("q")))
	assert.Equal(t, "2", string(req.Query("page")))
	assert.Nil(t, req.Query("missing"))
	assert.Equal(t, "frag", string(req.Fragment()))
}

func TestParseHeaderFolding(t *testing.T) {
	req, _ := parseRequest(t, "GET / HTTP/1.1\r\n"+
		"X-Folded: first\r\n second\r\n"+
		"\r\n")
	assert.Equal(t, "first second", string(req.HeaderValue("x-folded")))
}

func TestParseAbsoluteTarget(t *testing.T) {
	req, _ := parseRequest(t, "GET http://user@example.com:8080/x HTTP/1.1\r\n\r\n")
	assert.Equal(t, "example.com", string(req.Host()))
	assert.Equal(t, "/x", string(req.Path()))
}

func TestConnectionTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		keeps bool
	}{
		{
			name:  "http10 default close",
			input: "GET / HTTP/1.0\r\n\r\n",
			keeps: false,
		},
		{
			name:  "http10 keep-alive",
			input: "GET / HTTP/1.0\r\nConnection: keep-alive\r\n\r\n",
			keeps: true,
		},
		{
			name:  "http11 default keep",
			input: "GET / HTTP/1.1\r\n\r\n",
			keeps: true,
		},
		{
			name:  "http11 close",
			input: "GET / HTTP/1.1\r\nConnection: close\r\n\r\n",
			keeps: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := parseRequest(t, tt.input)
			assert.Equal(t, tt.keeps, req.KeepsConnection())
		})
	}
}

func TestContentLength(t *testing.T) {
	req, _ := parseRequest(t, "PUT / HTTP/1.1\r\nContent-Length: 12\r\nContent-Type: text/plain\r\n\r\nHello World!")
	assert.Equal(t, 12, req.ContentLength())
	assert.True(t, req.FetchContent())
	assert.Equal(t, "Hello World!", string(req.Content()))
}

func TestContentLengthRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "not a number",
			input: "PUT / HTTP/1.1\r\nContent-Length: twelve\r\n\r\n",
		},
		{
			name:  "negative",
			input: "PUT / HTTP/1.1\r\nContent-Length: -1\r\n\r\n",
		},
		{
			name:  "overflow",
			input: "PUT / HTTP/1.1\r\nContent-Length: 2147483648\r\n\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := mediatype.NewRegistry()
			req := New(device.NewBuffered([]byte(tt.input)), reg)
			defer req.Free()
			assert.False(t, req.Parse())
		})
	}
}

func TestContentMD5(t *testing.T) {
	// 空串摘要的基准值
	emptySum := md5.Sum(nil)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", hex.EncodeToString(emptySum[:]))

	t.Run("mismatch invalidates content", func(t *testing.T) {
		req, _ := parseRequest(t, "PUT / HTTP/1.1\r\n"+
			"Content-Length: 12\r\n"+
			"Content-MD5: ZGVhZGJlZWY=\r\n"+
			"Content-Type: text/plain\r\n"+
			"\r\nHello World!")
		assert.False(t, req.FetchContent())
		assert.True(t, req.MD5Mismatched())
		assert.Nil(t, req.Content())
	})

	t.Run("match on empty body", func(t *testing.T) {
		req, _ := parseRequest(t, "GET / HTTP/1.1\r\n"+
			"Content-MD5: 1B2M2Y8AsgTpgAmY7PhCfg==\r\n"+
			"\r\n")
		assert.True(t, req.FetchContent())
		assert.False(t, req.MD5Mismatched())
	})
}

func TestContentType(t *testing.T) {
	req, reg := parseRequest(t, "PUT / HTTP/1.1\r\nContent-Type: text/plain\r\n\r\n")
	want, ok := reg.PairOf("text/plain")
	require.True(t, ok)
	assert.Equal(t, want, req.ContentType())

	// 未携带 Content-Type 时为通配对
	req2, _ := parseRequest(t, "GET / HTTP/1.1\r\n\r\n")
	assert.Equal(t, mediatype.WildcardPair, req2.ContentType())
}

func TestExpect(t *testing.T) {
	req, _ := parseRequest(t, "PUT / HTTP/1.1\r\nExpect: 100-continue\r\n\r\n")
	assert.Equal(t, ExpectationContinue, req.Expect())

	req2, _ := parseRequest(t, "PUT / HTTP/1.1\r\nExpect: 200-ok\r\n\r\n")
	assert.Equal(t, ExpectationUnknown, req2.Expect())

	req3, _ := parseRequest(t, "PUT / HTTP/1.1\r\n\r\n")
	assert.Equal(t, ExpectationNone, req3.Expect())
}

func TestAcceptIteration(t *testing.T) {
	reg := mediatype.NewRegistry()
	textPlain, _ := reg.PairOf("text/plain")
	appJSON, _ := reg.PairOf("application/json")

	collect := func(req *Request) []mediatype.Pair {
		var pairs []mediatype.Pair
		cursor := 0
		var p mediatype.Pair
		for req.NextAccept(&cursor, &p) {
			pairs = append(pairs, p)
		}
		return pairs
	}

	t.Run("quality descending", func(t *testing.T) {
		req := New(device.NewBuffered([]byte(
			"GET / HTTP/1.1\r\nAccept: text/plain;q=0.8, application/json;q=0.9\r\n\r\n")), reg)
		defer req.Free()
		require.True(t, req.Parse())
		assert.Equal(t, []mediatype.Pair{appJSON, textPlain}, collect(req))
	})

	t.Run("ties keep listing order", func(t *testing.T) {
		req := New(device.NewBuffered([]byte(
			"GET / HTTP/1.1\r\nAccept: text/plain, application/json\r\n\r\n")), reg)
		defer req.Free()
		require.True(t, req.Parse())
		assert.Equal(t, []mediatype.Pair{textPlain, appJSON}, collect(req))
	})

	t.Run("absent accept yields wildcard", func(t *testing.T) {
		req := New(device.NewBuffered([]byte("GET / HTTP/1.1\r\n\r\n")), reg)
		defer req.Free()
		require.True(t, req.Parse())
		assert.Equal(t, []mediatype.Pair{mediatype.WildcardPair}, collect(req))
	})

	t.Run("iterator is re-entrant", func(t *testing.T) {
		req := New(device.NewBuffered([]byte(
			"GET / HTTP/1.1\r\nAccept: text/plain\r\n\r\n")), reg)
		defer req.Free()
		require.True(t, req.Parse())

		cursor := 0
		var p mediatype.Pair
		assert.True(t, req.NextAccept(&cursor, &p))
		assert.False(t, req.NextAccept(&cursor, &p))

		cursor = 0
		assert.True(t, req.NextAccept(&cursor, &p))
		assert.Equal(t, textPlain, p)
	})
}
