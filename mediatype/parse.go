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

package mediatype

// tchar per RFC 7230 §3.2.6
var tokenChars = func() (m [256]bool) {
	for c := '0'; c <= '9'; c++ {
		m[c] = true
	}
	for c := 'a'; c <= 'z'; c++ {
		m[c] = true
	}
	for c := 'A'; c <= 'Z'; c++ {
		m[c] = true
	}
	for _, c := range []byte("!#$%&'*+-.^_`|~") {
		m[c] = true
	}
	return m
}()

func isTokenChar(c byte) bool {
	return tokenChars[c]
}

func isOWS(c byte) bool {
	return c == ' ' || c == '\t'
}

func skipOWS(b []byte, i int) int {
	for i < len(b) && isOWS(b[i]) {
		i++
	}
	return i
}

func scanToken(b []byte, i int) int {
	for i < len(b) && isTokenChar(b[i]) {
		i++
	}
	return i
}

// Parse 从 b 的起始处消费一个 media-type 条目
//
//	type "/" subtype *( OWS ";" OWS param )
//
// 在 `,` 或末尾停止 返回消费的字节数 语法错误时返回 0
// type 或 subtype 语法正确但未注册时对应字段为 Invalid
// 质量因子取自 `q` 参数 以十分之一为粒度 缺省为 10 其余参数被跳过
func (r *Registry) Parse(b []byte) (Pair, Quality, int) {
	pair := InvalidPair
	quality := DefaultQuality

	i := skipOWS(b, 0)
	typeBegin := i
	i = scanToken(b, i)
	if i == typeBegin || i >= len(b) || b[i] != '/' {
		return InvalidPair, quality, 0
	}
	typeToken := b[typeBegin:i]

	i++
	subtypeBegin := i
	i = scanToken(b, i)
	if i == subtypeBegin {
		return InvalidPair, quality, 0
	}
	subtypeToken := b[subtypeBegin:i]

	r.mu.Lock()
	if fr := r.types.Find(typeToken); fr.Used == len(typeToken) {
		pair.Type = fr.Value
	}
	if fr := r.subtypes.Find(subtypeToken); fr.Used == len(subtypeToken) {
		pair.Subtype = fr.Value
	}
	r.mu.Unlock()

	// 参数列表 仅识别 q 其余跳过
	for {
		i = skipOWS(b, i)
		if i >= len(b) || b[i] != ';' {
			break
		}
		i = skipOWS(b, i+1)

		keyBegin := i
		i = scanToken(b, i)
		key := b[keyBegin:i]
		if i >= len(b) || b[i] != '=' {
			continue
		}
		i++
		valueBegin := i
		for i < len(b) && b[i] != ';' && b[i] != ',' && !isOWS(b[i]) {
			i++
		}
		if len(key) == 1 && (key[0] == 'q' || key[0] == 'Q') {
			if q, ok := parseQuality(b[valueBegin:i]); ok {
				quality = q
			}
		}
	}
	return pair, quality, i
}

// parseQuality 解析 [0.0, 1.0] 范围内的质量因子 粒度为十分之一
func parseQuality(b []byte) (Quality, bool) {
	if len(b) == 0 || b[0] < '0' || b[0] > '1' {
		return DefaultQuality, false
	}
	whole := b[0] - '0'

	tenth := byte(0)
	if len(b) > 1 {
		if b[1] != '.' || len(b) < 3 {
			return DefaultQuality, false
		}
		for i := 2; i < len(b); i++ {
			if b[i] < '0' || b[i] > '9' {
				return DefaultQuality, false
			}
		}
		tenth = b[2] - '0'
	}

	q := Quality(whole*10 + tenth)
	if q > 10 {
		return DefaultQuality, false
	}
	return q, true
}
