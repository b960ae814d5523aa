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
	"bytes"
	"crypto/md5"
	"encoding/base64"
	"strings"

	"github.com/packetd/restd/common"
	"github.com/packetd/restd/device"
	"github.com/packetd/restd/httpdate"
	"github.com/packetd/restd/internal/trie"
	"github.com/packetd/restd/mediatype"
	"github.com/packetd/restd/uri"
)

var methods = func() *trie.Trie[Method] {
	t := trie.New[Method](false) // 方法匹配大小写敏感
	t.Insert("GET", MethodGet)
	t.Insert("PUT", MethodPut)
	t.Insert("DELETE", MethodDelete)
	t.Insert("POST", MethodPost)
	return t
}()

var versions = func() *trie.Trie[Version] {
	t := trie.New[Version](false)
	t.Insert("HTTP/1.0", Version10)
	t.Insert("HTTP/1.1", Version11)
	t.Insert("HTTP/2", Version2)
	return t
}()

// headerKey 可识别的头部名称 其余进入自定义表
type headerKey uint8

const (
	headerCustom headerKey = iota
	headerAccept
	headerConnection
	headerContentLength
	headerContentMD5
	headerContentType
	headerDate
	headerExpect
	headerFrom
	headerReferer
	headerUserAgent
)

var headerKeys = func() *trie.Trie[headerKey] {
	t := trie.New[headerKey](true)
	t.Insert("accept", headerAccept)
	t.Insert("connection", headerConnection)
	t.Insert("content-length", headerContentLength)
	t.Insert("content-md5", headerContentMD5)
	t.Insert("content-type", headerContentType)
	t.Insert("date", headerDate)
	t.Insert("expect", headerExpect)
	t.Insert("from", headerFrom)
	t.Insert("referer", headerReferer)
	t.Insert("user-agent", headerUserAgent)
	return t
}()

// Request 入站报文解析后的只读视图
//
// 所有 []byte 访问器返回的都是 lexer 持有缓冲的子切片
// 在 Free 之前保持有效 Request 不允许跨协程共享
type Request struct {
	lx  lexer
	reg *mediatype.Registry

	method        Method
	version       Version
	pathURI       uri.URI
	contentLength int
	contentMD5    []byte
	contentType   mediatype.Pair
	content       []byte
	keepAlive     bool
	closeSet      bool
	date          int64
	expect        Expectation
	from          []byte
	referer       []byte
	userAgent     []byte
	headers       map[string][]byte
	queries       map[string][]byte
	accepts       []acceptEntry
	md5Mismatch   bool
}

// New 创建并返回绑定在 dev 上的 *Request 实例
func New(dev device.Device, reg *mediatype.Registry) *Request {
	return &Request{
		lx:          newLexer(dev),
		reg:         reg,
		contentType: mediatype.WildcardPair,
	}
}

// Free 归还持有的缓冲资源 此后所有借出的切片失效
func (r *Request) Free() {
	r.lx.free()
}

// Parse 驱动 lexer 完成整个 header 的解析
//
// 任何一段解析失败都会整体失败 调用方以 400 应答
func (r *Request) Parse() bool {
	if !r.lx.fetchHeader() {
		return false
	}

	ch := r.lx.get()
	if !r.parseMethod(&ch) || !r.parseURI(&ch) || !r.parseVersion(&ch) {
		return false
	}

	ch = r.lx.get()
	for ch >= 0 {
		if ch == '\n' {
			r.finishAccept()
			return true
		}
		if !r.parseHeader(&ch) {
			return false
		}
		ch = r.lx.get()
	}
	return false
}

func isWhitespace(ch int) bool {
	return ch == ' ' || ch == '\t'
}

func isNewline(ch int) bool {
	return ch == '\n'
}

func (r *Request) skipWhitespace(ch *int) {
	for *ch >= 0 && isWhitespace(*ch) {
		*ch = r.lx.get()
	}
}

func (r *Request) parseMethod(ch *int) bool {
	r.skipWhitespace(ch)
	if *ch < 0 {
		return false
	}

	begin := r.lx.prevIndex()
	for *ch >= 0 {
		if isWhitespace(*ch) {
			token := r.lx.data(begin)[:r.lx.prevIndex()-begin]
			fr := methods.Find(token)
			if fr.Used != len(token) || fr.Used == 0 {
				return false
			}
			r.method = fr.Value
			return true
		}
		*ch = r.lx.get()
	}
	return false
}

func (r *Request) parseURI(ch *int) bool {
	r.skipWhitespace(ch)
	if *ch < 0 {
		return false
	}

	begin := r.lx.prevIndex()
	for *ch >= 0 {
		if isWhitespace(*ch) {
			raw := r.lx.data(begin)[:r.lx.prevIndex()-begin]
			if !r.pathURI.Parse(raw, true) {
				return false
			}
			r.parseQueries(r.pathURI.Query())
			return true
		}
		*ch = r.lx.get()
	}
	return false
}

func (r *Request) parseVersion(ch *int) bool {
	r.skipWhitespace(ch)
	if *ch < 0 {
		return false
	}

	begin := r.lx.prevIndex()
	for *ch >= 0 {
		if isNewline(*ch) {
			token := r.lx.data(begin)[:r.lx.prevIndex()-begin]
			fr := versions.Find(token)
			if fr.Used != len(token) || fr.Used == 0 {
				return false
			}
			r.version = fr.Value
			return true
		}
		*ch = r.lx.get()
	}
	return false
}

// parseHeader 解析一行 `name : value`
//
// name 经 caseless trie 分派到具体 setter 未识别的进入自定义表
func (r *Request) parseHeader(ch *int) bool {
	keyBegin := r.lx.prevIndex()
	for *ch >= 0 && *ch != ':' {
		if isNewline(*ch) {
			return false
		}
		*ch = r.lx.get()
	}
	if *ch < 0 {
		return false
	}
	key := r.lx.data(keyBegin)[:r.lx.prevIndex()-keyBegin]

	known := headerCustom
	if fr := headerKeys.Find(key); fr.Used == len(key) && fr.Used > 0 {
		known = fr.Value
	}

	*ch = r.lx.get()
	valueBegin := r.lx.prevIndex()
	for *ch >= 0 {
		if isNewline(*ch) {
			value := r.lx.data(valueBegin)[:r.lx.prevIndex()-valueBegin]
			value = trimWhitespace(value)
			return r.setHeader(known, key, value)
		}
		*ch = r.lx.get()
	}
	return false
}

func trimWhitespace(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}

func (r *Request) setHeader(key headerKey, name, value []byte) bool {
	switch key {
	case headerAccept:
		return r.parseAccept(value)

	case headerConnection:
		if bytes.EqualFold(value, charKeepAlive) {
			r.keepAlive = true
		}
		if bytes.EqualFold(value, charClose) {
			r.closeSet = true
		}
		return true

	case headerContentLength:
		n, ok := parseDecimal(value)
		if !ok || n > common.MaxContentLength {
			return false
		}
		r.contentLength = n
		return true

	case headerContentMD5:
		r.contentMD5 = value
		return true

	case headerContentType:
		pair, _, n := r.reg.Parse(value)
		if n == 0 {
			return false
		}
		r.contentType = pair
		return true

	case headerDate:
		r.date = httpdate.Parse(value)
		return r.date >= 0

	case headerExpect:
		if bytes.EqualFold(value, charContinue) {
			r.expect = ExpectationContinue
		} else {
			r.expect = ExpectationUnknown
		}
		return true

	case headerFrom:
		r.from = value
		return true

	case headerReferer:
		r.referer = value
		return true

	case headerUserAgent:
		r.userAgent = value
		return true
	}

	if r.headers == nil {
		r.headers = make(map[string][]byte)
	}
	r.headers[strings.ToLower(string(name))] = value
	return true
}

// parseQueries 分解 `k=v&k2=v2` 形式的查询串
func (r *Request) parseQueries(query []byte) {
	for len(query) > 0 {
		entry := query
		if idx := bytes.IndexByte(query, '&'); idx >= 0 {
			entry = query[:idx]
			query = query[idx+1:]
		} else {
			query = nil
		}
		if len(entry) == 0 {
			continue
		}

		key, value := entry, []byte(nil)
		if idx := bytes.IndexByte(entry, '='); idx >= 0 {
			key, value = entry[:idx], entry[idx+1:]
		}
		if r.queries == nil {
			r.queries = make(map[string][]byte)
		}
		r.queries[string(key)] = value
	}
}

// parseDecimal 非负十进制数 溢出与空串均失败
func parseDecimal(b []byte) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
		if n > common.MaxContentLength {
			return 0, false
		}
	}
	return n, true
}

var (
	charKeepAlive = []byte("keep-alive")
	charClose     = []byte("close")
	charContinue  = []byte("100-continue")
)

// FetchContent 读取 Content-Length 声明的 body 字节
//
// 携带 Content-MD5 时对 body 计算摘要并与解码后的期望值比对
// 不一致时使内容失效并返回 false
func (r *Request) FetchContent() bool {
	if r.contentLength > 0 {
		if !r.lx.fetchContent(r.contentLength) {
			return false
		}
		r.content = r.lx.content()
	}

	if r.contentMD5 != nil {
		sum := md5.Sum(r.content)
		expected := make([]byte, base64.StdEncoding.DecodedLen(len(r.contentMD5)))
		n, err := base64.StdEncoding.Decode(expected, r.contentMD5)
		if err != nil || n != md5.Size || !bytes.Equal(sum[:], expected[:n]) {
			r.content = nil
			r.md5Mismatch = true
			return false
		}
	}
	return true
}

// MD5Mismatched FetchContent 是否因摘要不一致而失败
func (r *Request) MD5Mismatched() bool { return r.md5Mismatch }

// IOFailed 解析是否因设备故障而失败
func (r *Request) IOFailed() bool { return r.lx.failedIO() }

// CleanClosed 流在请求开始前正常关闭
func (r *Request) CleanClosed() bool { return r.lx.cleanClosed() }

func (r *Request) Method() Method        { return r.method }
func (r *Request) HTTPVersion() Version  { return r.version }
func (r *Request) Path() []byte          { return r.pathURI.Path() }
func (r *Request) Host() []byte          { return r.pathURI.Host() }
func (r *Request) Fragment() []byte      { return r.pathURI.Fragment() }
func (r *Request) Date() int64           { return r.date }
func (r *Request) Expect() Expectation   { return r.expect }
func (r *Request) From() []byte          { return r.from }
func (r *Request) Referer() []byte       { return r.referer }
func (r *Request) UserAgent() []byte     { return r.userAgent }
func (r *Request) Content() []byte       { return r.content }
func (r *Request) ContentLength() int    { return r.contentLength }

// ContentType 请求声明的媒体类型 未携带 Content-Type 时为通配对
func (r *Request) ContentType() mediatype.Pair { return r.contentType }

// Query 返回查询串中 key 对应的值 不存在时返回 nil
func (r *Request) Query(key string) []byte {
	return r.queries[key]
}

// HeaderValue 返回自定义头部的值 名称大小写不敏感
func (r *Request) HeaderValue(name string) []byte {
	return r.headers[strings.ToLower(name)]
}

// KeepsConnection 连接是否保持
//
// HTTP/1.1 及以上默认保持 显式的 `Connection: close` 优先
func (r *Request) KeepsConnection() bool {
	if r.closeSet {
		return false
	}
	return r.version > Version10 || r.keepAlive
}
