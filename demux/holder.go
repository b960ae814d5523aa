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

package demux

import (
	"sync"

	"github.com/packetd/restd/request"
	"github.com/packetd/restd/response"
)

// Holder 一次命中产生的调用令牌 持有注册的一个 in-flight 单位
//
// Close 归还该单位并唤醒可能在等待排空的 Disconnect
type Holder struct {
	d        *Demux
	entry    *acceptEntry
	callback Callback
	once     sync.Once
}

// Call 调用被选中的 handler
//
// handler 抛出的 panic 原样向上传播 库不做捕获与翻译
func (h *Holder) Call(req *request.Request, rsp *response.Response) {
	h.callback(req, rsp)
}

// Close 归还 in-flight 单位 幂等
func (h *Holder) Close() {
	h.once.Do(func() {
		h.d.mu.Lock()
		h.entry.inflight--
		h.d.mu.Unlock()
		h.d.cond.Broadcast()
	})
}
