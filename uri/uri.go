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

package uri

import (
	"github.com/packetd/restd/internal/trie"
)

// Scheme URI 方案
type Scheme uint8

const (
	SchemeUnknown Scheme = iota
	SchemeHTTP
	SchemeHTTPS
)

type schemeValue struct {
	scheme Scheme
	port   uint16
}

var schemes = func() *trie.Trie[schemeValue] {
	t := trie.New[schemeValue](true)
	t.Insert("http", schemeValue{scheme: SchemeHTTP, port: 80})
	t.Insert("https", schemeValue{scheme: SchemeHTTPS, port: 443})
	return t
}()

// URI RFC 3986 分解结果
//
// 所有 []byte 访问器返回的都是 Parse 入参缓冲区的子切片
// 在持有者重用缓冲区之前保持有效
type URI struct {
	scheme   Scheme
	userinfo []byte
	host     []byte
	port     uint16
	path     []byte
	query    []byte
	fragment []byte
}

func (u *URI) Scheme() Scheme   { return u.scheme }
func (u *URI) Userinfo() []byte { return u.userinfo }
func (u *URI) Host() []byte     { return u.host }
func (u *URI) Port() uint16     { return u.port }
func (u *URI) Path() []byte     { return u.path }
func (u *URI) Query() []byte    { return u.query }
func (u *URI) Fragment() []byte { return u.fragment }

// Parse 两趟分解 URI
//
// 第一趟对整个缓冲区原地做百分号解码 非法或截断的编码序列导致失败
// 第二趟切分出 scheme authority path query fragment
// withScheme 为 false 时入参为 request-target `/` 开头的即为 origin-form
func (u *URI) Parse(data []byte, withScheme bool) bool {
	*u = URI{}
	if len(data) == 0 {
		return false
	}

	decoded, ok := decodeInPlace(data)
	if !ok {
		return false
	}

	// fragment 与 query 从左往右定界
	rest := decoded
	for i := 0; i < len(rest); i++ {
		if rest[i] == '#' {
			u.fragment = rest[i+1:]
			rest = rest[:i]
			break
		}
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] == '?' {
			u.query = rest[i+1:]
			rest = rest[:i]
			break
		}
	}

	if len(rest) > 0 && rest[0] == '/' {
		// origin-form 无 scheme 无 authority
		u.path = rest
		return true
	}

	// scheme 可选 通过 trie 识别并携带默认端口
	if r := schemes.Find(rest); r.Used > 0 && r.Used < len(rest) && rest[r.Used] == ':' {
		if !withScheme {
			return false
		}
		u.scheme = r.Value.scheme
		u.port = r.Value.port
		rest = rest[r.Used+1:]
		// 可选的双斜杠
		if len(rest) >= 2 && rest[0] == '/' && rest[1] == '/' {
			rest = rest[2:]
		}
	} else if !withScheme {
		return false
	}

	// authority 到下一个斜杠为止 其后为 path
	authority := rest
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			authority = rest[:i]
			u.path = rest[i:]
			break
		}
	}
	return u.parseAuthority(authority)
}

// parseAuthority 从右往左识别可选的 `:port` 再从左往右识别可选的 `user@`
func (u *URI) parseAuthority(authority []byte) bool {
	if len(authority) == 0 {
		return true
	}

	for i := len(authority) - 1; i >= 0; i-- {
		c := authority[i]
		if c >= '0' && c <= '9' {
			continue
		}
		if c == ':' {
			port, ok := parsePort(authority[i+1:])
			if !ok {
				return false
			}
			u.port = port
			authority = authority[:i]
		}
		break
	}

	for i := 0; i < len(authority); i++ {
		if authority[i] == '@' {
			u.userinfo = authority[:i]
			authority = authority[i+1:]
			break
		}
	}
	u.host = authority
	return true
}

// parsePort 端口合法范围 1..65535 0 与溢出均视为非法
func parsePort(b []byte) (uint16, bool) {
	if len(b) == 0 || len(b) > 5 {
		return 0, false
	}
	n := 0
	for _, c := range b {
		n = n*10 + int(c-'0')
	}
	if n < 1 || n > 65535 {
		return 0, false
	}
	return uint16(n), true
}

func fromHex(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

// decodeInPlace 原地解码百分号编码 返回压缩后的前缀切片
func decodeInPlace(b []byte) ([]byte, bool) {
	w := 0
	for i := 0; i < len(b); {
		c := b[i]
		if c != '%' {
			b[w] = c
			w++
			i++
			continue
		}
		if i+2 >= len(b) {
			return nil, false
		}
		hi, lo := fromHex(b[i+1]), fromHex(b[i+2])
		if hi < 0 || lo < 0 {
			return nil, false
		}
		b[w] = byte(hi<<4 | lo)
		w++
		i += 3
	}
	return b[:w], true
}
