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

// Package processor 端到端地驱动单个请求
//
//	解析 -> 路由 -> 调用 handler -> 序列化响应 -> 错误兜底
//
// processor 自身不创建任何协程 由调用方在自有线程上逐请求驱动
// 在 handler 内部销毁 processor 会与等待 handler 结束的逻辑互等
// 属于未定义行为
package processor

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/packetd/restd/demux"
	"github.com/packetd/restd/device"
	"github.com/packetd/restd/logger"
	"github.com/packetd/restd/metrics"
	"github.com/packetd/restd/request"
	"github.com/packetd/restd/response"
)

func newError(format string, args ...any) error {
	format = "processor: " + format
	return errors.Errorf(format, args...)
}

// Config processor 配置
type Config struct {
	// ConnectionTimeout 请求完成后传递给设备的 lingering 超时
	ConnectionTimeout time.Duration `config:"connectionTimeout"`
}

// Validate 实现 confengine.Validator 接口
func (c *Config) Validate() error {
	if c.ConnectionTimeout < 0 {
		return newError("negative connectionTimeout")
	}
	return nil
}

// errorEntry 错误处理表中的单条注册 与 handler 共享 in-flight 纪律
type errorEntry struct {
	callback demux.Callback
	inflight int
}

// Processor 请求处理引擎
//
// 必须在其引用的 Demux 之前销毁 即销毁时不允许再有在途请求
type Processor struct {
	dm   *demux.Demux
	conf Config
	mm   *metrics.Metrics

	mu            sync.Mutex
	cond          *sync.Cond
	errorHandlers map[int]*errorEntry
}

// New 创建并返回 *Processor 实例 mm 允许为 nil
func New(dm *demux.Demux, conf Config, mm *metrics.Metrics) (*Processor, error) {
	if dm == nil {
		return nil, newError("nil demux")
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	p := &Processor{
		dm:            dm,
		conf:          conf,
		mm:            mm,
		errorHandlers: make(map[int]*errorEntry),
	}
	p.cond = sync.NewCond(&p.mu)
	return p, nil
}

// SetErrorHandler 注册一个状态码的错误处理回调 每个状态码至多一个
func (p *Processor) SetErrorHandler(statusCode int, cb demux.Callback) (*ErrorHandle, error) {
	if cb == nil {
		return nil, newError("nil callback")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.errorHandlers[statusCode]; ok {
		return nil, newError("error handler for %d already set", statusCode)
	}
	p.errorHandlers[statusCode] = &errorEntry{callback: cb}
	return &ErrorHandle{p: p, statusCode: statusCode}, nil
}

// ErrorHandle 错误处理注册的所有权凭据
type ErrorHandle struct {
	p          *Processor
	statusCode int
	once       sync.Once
}

// Close 解除注册 在途调用未结束时阻塞
func (h *ErrorHandle) Close() {
	h.once.Do(func() {
		p := h.p
		p.mu.Lock()
		for {
			entry, ok := p.errorHandlers[h.statusCode]
			if !ok {
				break
			}
			if entry.inflight > 0 {
				p.cond.Wait()
				continue
			}
			delete(p.errorHandlers, h.statusCode)
			break
		}
		p.mu.Unlock()
	})
}

// respondError 以错误处理表兜底 未注册时退化为内置的最小响应
func (p *Processor) respondError(statusCode int, req *request.Request, rsp *response.Response) {
	rsp.SetStatus(statusCode)

	p.mu.Lock()
	entry, ok := p.errorHandlers[statusCode]
	if !ok {
		p.mu.Unlock()
		return
	}
	entry.inflight++
	p.mu.Unlock()

	entry.callback(req, rsp)

	p.mu.Lock()
	entry.inflight--
	p.mu.Unlock()
	p.cond.Broadcast()
}

func failureStatus(f demux.Failure) int {
	switch f {
	case demux.FailureInvalidContentType, demux.FailureUnsupportedMedia:
		return 415
	case demux.FailureNotFound:
		return 404
	case demux.FailureMethodNotAllowed:
		return 405
	case demux.FailureNotAcceptable:
		return 406
	}
	return 400
}

// allowValue 拼接 405 响应的 Allow 头部
func (p *Processor) allowValue(path string) string {
	ms := p.dm.AllowedMethods(path)
	names := make([]string, 0, len(ms))
	for _, m := range ms {
		names = append(names, m.String())
	}
	return strings.Join(names, ", ")
}

// HandleOneRequest 驱动一次完整的请求处理
//
// 返回 true 代表发出了至少一个响应字节或输入流已正常关闭
// 仅当设备在收发过程中失败时返回 false
func (p *Processor) HandleOneRequest(dev device.Device) bool {
	p.mm.IncInflight()
	defer p.mm.DecInflight()

	req := request.New(dev, p.dm.Registry())
	defer req.Free()
	rsp := response.New(dev, p.dm.Registry())

	start := time.Now()
	ok := req.Parse()

	switch {
	case ok:
	case req.IOFailed():
		logger.Debugf("device failed while receiving request")
		return false
	case req.CleanClosed():
		p.finish(dev)
		return true
	default:
		p.mm.IncParseFailure()
		p.respondError(400, req, rsp)
		return p.send(req, rsp, start, dev)
	}

	// 版本 trie 识别 HTTP/2 但本库不实现其帧层
	if req.HTTPVersion() == request.Version2 {
		p.respondError(505, req, rsp)
		return p.send(req, rsp, start, dev)
	}

	if req.Expect() == request.ExpectationUnknown {
		p.respondError(417, req, rsp)
		return p.send(req, rsp, start, dev)
	}

	holder, failure := p.dm.Determine(req)
	if holder == nil {
		statusCode := failureStatus(failure)
		if failure == demux.FailureMethodNotAllowed {
			rsp.SetHeader("Allow", p.allowValue(string(req.Path())))
		}
		p.respondError(statusCode, req, rsp)
		return p.send(req, rsp, start, dev)
	}

	if !req.FetchContent() {
		holder.Close()
		if req.IOFailed() {
			return false
		}
		// 摘要不一致或内容不完整 handler 不会被调用
		p.respondError(400, req, rsp)
		return p.send(req, rsp, start, dev)
	}

	holder.Call(req, rsp)
	holder.Close()
	return p.send(req, rsp, start, dev)
}

// send 序列化响应并记录指标
func (p *Processor) send(req *request.Request, rsp *response.Response, start time.Time, dev device.Device) bool {
	sent := rsp.Serialize()
	if !sent {
		logger.Debugf("device failed while sending response")
	}
	p.mm.ObserveRequest(req.Method().String(), rsp.Status(), time.Since(start).Seconds())
	p.finish(dev)
	return sent
}

func (p *Processor) finish(dev device.Device) {
	if p.conf.ConnectionTimeout > 0 {
		if err := dev.SetLingeringTimeout(p.conf.ConnectionTimeout); err != nil {
			logger.Debugf("set lingering timeout failed: %v", err)
		}
	}
}
