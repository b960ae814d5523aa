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

package device

import (
	"io"
	"time"

	"github.com/pkg/errors"
)

// Buffered 内存 Device 实现
//
// 预置的输入字节被 Receive 顺序消费 Send 的内容被捕获在内部缓冲中
// 可以注入收发失败 主要服务于测试场景
type Buffered struct {
	input    []byte
	r        int
	sent     []byte
	failRecv bool
	failSend bool
	linger   time.Duration
	closed   bool
}

var errDeviceFailure = errors.New("device: injected failure")

// NewBuffered 创建并返回 *Buffered 实例
func NewBuffered(input []byte) *Buffered {
	return &Buffered{input: input}
}

// FailReceive 后续的 Receive 一律失败
func (b *Buffered) FailReceive() { b.failRecv = true }

// FailSend 后续的 Send 一律失败
func (b *Buffered) FailSend() { b.failSend = true }

// Receive 实现 Device 接口
func (b *Buffered) Receive(max int) ([]byte, error) {
	if b.failRecv {
		return nil, errDeviceFailure
	}
	if b.r >= len(b.input) {
		return nil, io.EOF
	}
	end := b.r + max
	if end > len(b.input) {
		end = len(b.input)
	}
	p := b.input[b.r:end]
	b.r = end
	return p, nil
}

// Send 实现 Device 接口
func (b *Buffered) Send(p []byte) error {
	if b.failSend {
		return errDeviceFailure
	}
	b.sent = append(b.sent, p...)
	return nil
}

// SetLingeringTimeout 实现 Device 接口
func (b *Buffered) SetLingeringTimeout(d time.Duration) error {
	b.linger = d
	return nil
}

// Close 实现 Device 接口
func (b *Buffered) Close() error {
	b.closed = true
	return nil
}

// Sent 返回迄今捕获的全部输出
func (b *Buffered) Sent() []byte { return b.sent }

// Lingering 返回最后一次设置的超时
func (b *Buffered) Lingering() time.Duration { return b.linger }

// Closed Close 是否被调用过
func (b *Buffered) Closed() bool { return b.closed }
