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

import (
	"strings"
	"sync"

	"github.com/packetd/restd/internal/trie"
)

// Registry 维护字符串与紧凑标识之间的双向映射
//
// 查找大小写不敏感 标识在仍被注册的 handler 引用期间不会被回收复用
// 所有操作由内部互斥锁保护
type Registry struct {
	mu           sync.Mutex
	types        *trie.Trie[Type]
	subtypes     *trie.Trie[Subtype]
	typeNames    []string
	subtypeNames []string
	typeRefs     []int32
	subtypeRefs  []int32
}

// 常用类型预注册 与动态注册的标识走完全相同的生命周期
var (
	wellKnownTypes    = []string{"text", "application", "audio", "image", "video", "message", "multipart"}
	wellKnownSubtypes = []string{"plain", "html", "json", "xml", "octet-stream", "form-urlencoded"}
)

// NewRegistry 创建并返回 *Registry 实例
//
// 0 号标识保留给 Invalid 1 号保留给通配符 `*`
func NewRegistry() *Registry {
	r := &Registry{
		types:        trie.New[Type](true),
		subtypes:     trie.New[Subtype](true),
		typeNames:    []string{"", "*"},
		subtypeNames: []string{"", "*"},
		typeRefs:     []int32{0, 0},
		subtypeRefs:  []int32{0, 0},
	}
	r.types.Insert("*", TypeWildcard)
	r.subtypes.Insert("*", SubtypeWildcard)
	for _, s := range wellKnownTypes {
		r.registerType(s)
	}
	for _, s := range wellKnownSubtypes {
		r.registerSubtype(s)
	}
	return r
}

func validToken(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isTokenChar(s[i]) {
			return false
		}
	}
	return true
}

// RegisterType 注册一个主类型 名称已存在或不合法时返回 TypeInvalid
func (r *Registry) RegisterType(name string) Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerType(name)
}

func (r *Registry) registerType(name string) Type {
	name = strings.ToLower(name)
	if !validToken(name) {
		return TypeInvalid
	}

	id := Type(len(r.typeNames))
	if !r.types.Insert(name, id) {
		return TypeInvalid
	}
	r.typeNames = append(r.typeNames, name)
	r.typeRefs = append(r.typeRefs, 0)
	return id
}

// RegisterSubtype 注册一个子类型 名称已存在或不合法时返回 SubtypeInvalid
func (r *Registry) RegisterSubtype(name string) Subtype {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerSubtype(name)
}

func (r *Registry) registerSubtype(name string) Subtype {
	name = strings.ToLower(name)
	if !validToken(name) {
		return SubtypeInvalid
	}

	id := Subtype(len(r.subtypeNames))
	if !r.subtypes.Insert(name, id) {
		return SubtypeInvalid
	}
	r.subtypeNames = append(r.subtypeNames, name)
	r.subtypeRefs = append(r.subtypeRefs, 0)
	return id
}

// UnregisterType 注销主类型 仍被引用或为保留标识时返回 false
func (r *Registry) UnregisterType(t Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t <= TypeWildcard || int(t) >= len(r.typeNames) {
		return false
	}
	if r.typeNames[t] == "" || r.typeRefs[t] > 0 {
		return false
	}
	r.types.Erase(r.typeNames[t])
	r.typeNames[t] = ""
	return true
}

// UnregisterSubtype 注销子类型 仍被引用或为保留标识时返回 false
func (r *Registry) UnregisterSubtype(st Subtype) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st <= SubtypeWildcard || int(st) >= len(r.subtypeNames) {
		return false
	}
	if r.subtypeNames[st] == "" || r.subtypeRefs[st] > 0 {
		return false
	}
	r.subtypes.Erase(r.subtypeNames[st])
	r.subtypeNames[st] = ""
	return true
}

// TypeName 返回主类型的规范名称 未注册时返回空串
func (r *Registry) TypeName(t Type) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if int(t) >= len(r.typeNames) {
		return ""
	}
	return r.typeNames[t]
}

// SubtypeName 返回子类型的规范名称 未注册时返回空串
func (r *Registry) SubtypeName(st Subtype) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if int(st) >= len(r.subtypeNames) {
		return ""
	}
	return r.subtypeNames[st]
}

// PairName 返回 `type/subtype` 形式的名称 任一字段未注册时返回空串
func (r *Registry) PairName(p Pair) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if int(p.Type) >= len(r.typeNames) || int(p.Subtype) >= len(r.subtypeNames) {
		return ""
	}
	t, st := r.typeNames[p.Type], r.subtypeNames[p.Subtype]
	if t == "" || st == "" {
		return ""
	}
	return t + "/" + st
}

// Acquire 增加标识对的引用计数 由 demux 在注册 handler 时调用
func (r *Registry) Acquire(p Pair) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if int(p.Type) < len(r.typeRefs) {
		r.typeRefs[p.Type]++
	}
	if int(p.Subtype) < len(r.subtypeRefs) {
		r.subtypeRefs[p.Subtype]++
	}
}

// Release 减少标识对的引用计数
func (r *Registry) Release(p Pair) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if int(p.Type) < len(r.typeRefs) && r.typeRefs[p.Type] > 0 {
		r.typeRefs[p.Type]--
	}
	if int(p.Subtype) < len(r.subtypeRefs) && r.subtypeRefs[p.Subtype] > 0 {
		r.subtypeRefs[p.Subtype]--
	}
}

// PairOf 解析 `type/subtype` 字符串为标识对 任一 token 未注册时 ok 为 false
func (r *Registry) PairOf(s string) (Pair, bool) {
	p, _, n := r.Parse([]byte(s))
	if n != len(s) || !p.Valid() {
		return InvalidPair, false
	}
	return p, true
}
