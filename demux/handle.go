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
)

// Handle 一次注册的所有权凭据 不可复制
//
// Close 解除注册 并在注册仍有在途调用时阻塞直到全部结束
// 在 handler 自身的回调里调用 Close 会与该调用持有的 in-flight 互等
// 属于未定义行为 参见包文档
type Handle struct {
	d    *Demux
	id   HandlerID
	once sync.Once
}

// ID 返回注册标识
func (h *Handle) ID() HandlerID {
	return h.id
}

// Close 解除注册 幂等
func (h *Handle) Close() {
	h.once.Do(func() {
		h.d.disconnect(h.id)
	})
}

// Enable 恢复注册参与协商
func (h *Handle) Enable() {
	h.d.setEnabled(h.id, true)
}

// Disable 暂停注册 被禁用的注册不会被 Determine 选中
// 协商会落到较低优先级的命中或以失败收场
func (h *Handle) Disable() {
	h.d.setEnabled(h.id, false)
}

// IsEnabled 返回注册的启用状态
func (h *Handle) IsEnabled() bool {
	return h.d.isEnabled(h.id)
}
