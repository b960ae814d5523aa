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

// Package demux 维护 (path, method, content-type) 到 handler 的路由表
// 并基于请求的 Accept 头部做内容协商
//
// 两个已知的死锁场景属于未定义行为 实现不做检测
//
//  1. 在 handler 内部销毁 request processor 后者会等待 handler 返回
//  2. handler 关闭自己的 Handle Disconnect 会等待本次调用持有的 in-flight 归零
package demux

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/packetd/restd/mediatype"
	"github.com/packetd/restd/request"
	"github.com/packetd/restd/response"
	"github.com/packetd/restd/uri"
)

func newError(format string, args ...any) error {
	format = "demux: " + format
	return errors.Errorf(format, args...)
}

// Callback 用户注册的请求处理函数
type Callback func(*request.Request, *response.Response)

// HandlerID 一次注册的唯一标识
//
// ContentType 与 AcceptType 的字段不允许为 Invalid
// AcceptType 可以携带通配 代表 handler 愿意产出任意匹配的表示
type HandlerID struct {
	Path        string
	Method      request.Method
	ContentType mediatype.Pair
	AcceptType  mediatype.Pair
}

type resourceKey struct {
	path        string
	method      request.Method
	contentType mediatype.Pair
}

// acceptEntry accept map 中的单条注册 保持插入顺序
type acceptEntry struct {
	acceptType mediatype.Pair
	callback   Callback
	enabled    bool
	inflight   int
}

// Failure Determine 未命中时的原因
type Failure uint8

const (
	FailureNone Failure = iota

	// FailureInvalidContentType 请求的 Content-Type 无法识别
	FailureInvalidContentType

	// FailureNotFound 路径未注册
	FailureNotFound

	// FailureMethodNotAllowed 路径存在但方法未注册
	FailureMethodNotAllowed

	// FailureUnsupportedMedia 路径与方法存在但内容类型未注册
	FailureUnsupportedMedia

	// FailureNotAcceptable 无可接受的表示
	FailureNotAcceptable
)

// Demux 线程安全的路由表
//
// 一把互斥锁保护外层表 每个 accept map 以及全部 enabled/inflight 字段
// 条件变量用于 Disconnect 等待 in-flight 排空
type Demux struct {
	mu        sync.Mutex
	cond      *sync.Cond
	resources map[resourceKey][]*acceptEntry
	registry  *mediatype.Registry
}

// New 创建并返回 *Demux 实例
func New() *Demux {
	d := &Demux{
		resources: make(map[resourceKey][]*acceptEntry),
		registry:  mediatype.NewRegistry(),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Registry 返回内部的 MIME 注册表
func (d *Demux) Registry() *mediatype.Registry {
	return d.registry
}

// Connect 注册一个 handler 成功时返回其所有权凭据
//
// Handle 被关闭时注册随之解除 期间会阻塞等待所有在途调用结束
func (d *Demux) Connect(id HandlerID, cb Callback) (*Handle, error) {
	if cb == nil {
		return nil, newError("nil callback")
	}
	if !uri.ValidPath(id.Path) {
		return nil, newError("invalid path %q", id.Path)
	}
	if id.Method == request.MethodUnknown {
		return nil, newError("unknown method")
	}
	if !id.ContentType.Valid() || !id.AcceptType.Valid() {
		return nil, newError("invalid mime identifier")
	}

	key := resourceKey{path: id.Path, method: id.Method, contentType: id.ContentType}

	d.mu.Lock()
	for _, entry := range d.resources[key] {
		if entry.acceptType == id.AcceptType {
			d.mu.Unlock()
			return nil, newError("duplicate handler id")
		}
	}
	d.resources[key] = append(d.resources[key], &acceptEntry{
		acceptType: id.AcceptType,
		callback:   cb,
		enabled:    true,
	})
	d.mu.Unlock()

	d.registry.Acquire(id.ContentType)
	d.registry.Acquire(id.AcceptType)
	return &Handle{d: d, id: id}, nil
}

// disconnect 移除注册 in-flight 大于零时等待条件变量
func (d *Demux) disconnect(id HandlerID) {
	key := resourceKey{path: id.Path, method: id.Method, contentType: id.ContentType}

	d.mu.Lock()
	for {
		entries, ok := d.resources[key]
		if !ok {
			d.mu.Unlock()
			return
		}

		idx := -1
		for i, entry := range entries {
			if entry.acceptType == id.AcceptType {
				idx = i
				break
			}
		}
		if idx < 0 {
			d.mu.Unlock()
			return
		}

		if entries[idx].inflight > 0 {
			d.cond.Wait()
			continue
		}

		entries = append(entries[:idx], entries[idx+1:]...)
		if len(entries) == 0 {
			delete(d.resources, key)
		} else {
			d.resources[key] = entries
		}
		break
	}
	d.mu.Unlock()

	d.registry.Release(id.ContentType)
	d.registry.Release(id.AcceptType)
}

func (d *Demux) find(id HandlerID) *acceptEntry {
	key := resourceKey{path: id.Path, method: id.Method, contentType: id.ContentType}
	for _, entry := range d.resources[key] {
		if entry.acceptType == id.AcceptType {
			return entry
		}
	}
	return nil
}

func (d *Demux) setEnabled(id HandlerID, enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry := d.find(id); entry != nil {
		entry.enabled = enabled
	}
}

func (d *Demux) isEnabled(id HandlerID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry := d.find(id)
	return entry != nil && entry.enabled
}

// specificity 通配字段越少的注册越具体 协商时优先
func specificity(p mediatype.Pair) int {
	n := 0
	if p.Type != mediatype.TypeWildcard {
		n += 2
	}
	if p.Subtype != mediatype.SubtypeWildcard {
		n++
	}
	return n
}

// Determine 为请求选择 handler
//
// 按质量降序遍历请求的 Accept 条目 对每个条目在 accept map 中做
// 通配感知匹配 多个命中时更具体的注册优先 同级取先注册者
// 只有 enabled 的注册可以命中 命中即增加其 in-flight 计数
func (d *Demux) Determine(req *request.Request) (*Holder, Failure) {
	contentType := req.ContentType()
	if !contentType.Valid() {
		return nil, FailureInvalidContentType
	}

	key := resourceKey{
		path:        string(req.Path()),
		method:      req.Method(),
		contentType: contentType,
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	entries, ok := d.resources[key]
	if !ok {
		return nil, d.diagnose(key)
	}

	cursor := 0
	var pair mediatype.Pair
	for req.NextAccept(&cursor, &pair) {
		var picked *acceptEntry
		best := -1
		for _, entry := range entries {
			if !entry.enabled || !entry.acceptType.Matches(pair) {
				continue
			}
			if s := specificity(entry.acceptType); s > best {
				picked = entry
				best = s
			}
		}
		if picked != nil {
			picked.inflight++
			return &Holder{d: d, entry: picked, callback: picked.callback}, FailureNone
		}
	}
	return nil, FailureNotAcceptable
}

// diagnose 区分 404 405 415 三种未命中原因 调用方必须持有锁
func (d *Demux) diagnose(key resourceKey) Failure {
	pathSeen := false
	for k := range d.resources {
		if k.path != key.path {
			continue
		}
		pathSeen = true
		if k.method == key.method {
			return FailureUnsupportedMedia
		}
	}
	if pathSeen {
		return FailureMethodNotAllowed
	}
	return FailureNotFound
}

// AllowedMethods 返回在 path 上注册过的方法集合 供 405 的 Allow 头部使用
func (d *Demux) AllowedMethods(path string) []request.Method {
	d.mu.Lock()
	defer d.mu.Unlock()

	seen := make(map[request.Method]struct{})
	var result []request.Method
	for k := range d.resources {
		if k.path != path {
			continue
		}
		if _, ok := seen[k.method]; ok {
			continue
		}
		seen[k.method] = struct{}{}
		result = append(result, k.method)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Route 路由表快照中的单条注册
type Route struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	ContentType string `json:"contentType"`
	AcceptType  string `json:"acceptType"`
	Enabled     bool   `json:"enabled"`
}

// Routes 返回按 (path, method, contentType) 字典序排序的路由表快照
func (d *Demux) Routes() []Route {
	d.mu.Lock()

	var routes []Route
	for k, entries := range d.resources {
		for _, entry := range entries {
			routes = append(routes, Route{
				Path:        k.path,
				Method:      k.method.String(),
				ContentType: d.registry.PairName(k.contentType),
				AcceptType:  d.registry.PairName(entry.acceptType),
				Enabled:     entry.enabled,
			})
		}
	}
	d.mu.Unlock()

	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		if routes[i].Method != routes[j].Method {
			return routes[i].Method < routes[j].Method
		}
		if routes[i].ContentType != routes[j].ContentType {
			return routes[i].ContentType < routes[j].ContentType
		}
		return routes[i].AcceptType < routes[j].AcceptType
	})
	return routes
}

// RegisterMIMEType 透传至 MIME 注册表
func (d *Demux) RegisterMIMEType(name string) mediatype.Type {
	return d.registry.RegisterType(name)
}

// RegisterMIMESubtype 透传至 MIME 注册表
func (d *Demux) RegisterMIMESubtype(name string) mediatype.Subtype {
	return d.registry.RegisterSubtype(name)
}

// UnregisterMIMEType 透传至 MIME 注册表 被注册引用期间返回 false
func (d *Demux) UnregisterMIMEType(t mediatype.Type) bool {
	return d.registry.UnregisterType(t)
}

// UnregisterMIMESubtype 透传至 MIME 注册表 被注册引用期间返回 false
func (d *Demux) UnregisterMIMESubtype(st mediatype.Subtype) bool {
	return d.registry.UnregisterSubtype(st)
}
