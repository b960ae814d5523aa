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
	"sort"

	"github.com/packetd/restd/mediatype"
)

// acceptEntry Accept 头部中的单个 media-range
type acceptEntry struct {
	pair    mediatype.Pair
	quality mediatype.Quality
}

// parseAccept 解析逗号分隔的 media-range 列表
//
// 语法错误的条目使整个头部解析失败 未注册的类型保留 Invalid 字段
// 这样的条目在协商时不会命中任何 handler
func (r *Request) parseAccept(value []byte) bool {
	for len(value) > 0 {
		pair, quality, n := r.reg.Parse(value)
		if n == 0 {
			return false
		}
		r.accepts = append(r.accepts, acceptEntry{pair: pair, quality: quality})

		value = value[n:]
		if len(value) > 0 {
			if value[0] != ',' {
				return false
			}
			value = value[1:]
		}
	}
	return true
}

// finishAccept 在 header 解析完成后整理 Accept 条目
//
// 质量降序排序 相同质量保持书写顺序 未携带 Accept 时补一个通配条目
func (r *Request) finishAccept() {
	if len(r.accepts) == 0 {
		r.accepts = append(r.accepts, acceptEntry{
			pair:    mediatype.WildcardPair,
			quality: mediatype.DefaultQuality,
		})
		return
	}
	sort.SliceStable(r.accepts, func(i, j int) bool {
		return r.accepts[i].quality > r.accepts[j].quality
	})
}

// NextAccept 可重入的 Accept 迭代器
//
// cursor 从 0 开始 每次命中返回 true 并推进 迭代结束返回 false
// 迭代既不加锁也不分配 demux 在协商时按此顺序尝试匹配
func (r *Request) NextAccept(cursor *int, pair *mediatype.Pair) bool {
	if *cursor >= len(r.accepts) {
		return false
	}
	*pair = r.accepts[*cursor].pair
	*cursor++
	return true
}
