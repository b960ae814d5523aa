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
	"io"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/packetd/restd/common"
	"github.com/packetd/restd/device"
	"github.com/packetd/restd/internal/bufpool"
)

// lexState 记录着 lexer 的处理状态
type lexState uint8

const (
	// stateCopy 初始值 逐字节拷贝并观察换行
	stateCopy lexState = iota

	// stateCRSeen 刚消费了一个 `\r` 等待可能跟随的 `\n`
	stateCRSeen

	// stateLWSCheck 刚写出了一个换行 观察下一个字节是否构成折行
	stateLWSCheck

	// stateReachedContent 连续两个换行 header 结束 剩余字节归属 content
	stateReachedContent

	// stateError 接收失败
	stateError
)

// lexer 流式拆分 header 与 content 两段缓冲
//
// header 在接收过程中被原地归一化
//
//	CR / CRLF / 裸 LF -> LF
//	换行后跟 SP 或 HT 的折行 -> 单个 SP
//
// 归一化只会缩短数据 因此可以安全地写回同一缓冲
// 两段缓冲取自 bufpool 由持有者在请求结束后调用 free 归还
type lexer struct {
	dev       device.Device
	hdr       *bytebufferpool.ByteBuffer
	cnt       *bytebufferpool.ByteBuffer
	state     lexState
	contentOK bool
	idx       int
	gotAny    bool
	recvErr   error
}

func newLexer(dev device.Device) lexer {
	return lexer{
		dev: dev,
		hdr: bufpool.Acquire(),
		cnt: bufpool.Acquire(),
	}
}

func (l *lexer) free() {
	bufpool.Release(l.hdr)
	bufpool.Release(l.cnt)
	l.hdr = nil
	l.cnt = nil
}

// fetchHeader 循环接收直到归一化后出现连续两个换行
//
// 返回 true 代表完整收到了 header 终止态同时保证方法幂等
// 多余接收的字节被移交至 content 缓冲 header 缓冲收缩至归一化后的长度
func (l *lexer) fetchHeader() bool {
	tail := 0
	head := 0
	var last byte

	for l.state != stateReachedContent && l.state != stateError {
		chunk, err := l.dev.Receive(common.ReceiveBlockSize)
		if err != nil {
			l.recvErr = err
			l.state = stateError
			continue
		}
		l.gotAny = true
		l.hdr.B = append(l.hdr.B, chunk...)

		for head < len(l.hdr.B) {
			l.fetchHeaderStep(&tail, &head, &last)
		}
	}

	if tail > 0 && tail <= len(l.hdr.B) {
		l.hdr.B = l.hdr.B[:tail]
	}
	return l.state == stateReachedContent
}

func (l *lexer) fetchHeaderStep(tail, head *int, last *byte) {
	ch := l.hdr.B[*head]

	switch l.state {
	case stateCopy:
		l.stepCopy(tail, head, ch, last)
	case stateCRSeen:
		l.stepCRSeen(head, ch, last)
	case stateLWSCheck:
		l.stepLWSCheck(tail, head, ch, last)
	case stateReachedContent:
		l.stepReachedContent(tail, head)
	}
}

func (l *lexer) stepCopy(tail, head *int, ch byte, last *byte) {
	*head++

	if ch == '\r' {
		// 先写出换行 last 的更新推迟到 CRSeen 判定之后
		l.hdr.B[*tail] = '\n'
		*tail++
		l.state = stateCRSeen
		return
	}

	if ch == '\n' {
		if *last == '\n' {
			l.state = stateReachedContent
		} else {
			l.state = stateLWSCheck
		}
	}
	l.hdr.B[*tail] = ch
	*tail++
	*last = ch
}

func (l *lexer) stepCRSeen(head *int, ch byte, last *byte) {
	// CRLF 合并为一个换行 吃掉紧随的 \n
	if ch == '\n' {
		*head++
	}

	if *last == '\n' {
		l.state = stateReachedContent
	} else {
		l.state = stateLWSCheck
		*last = '\n'
	}
}

func (l *lexer) stepLWSCheck(tail, head *int, ch byte, last *byte) {
	// 前一个字节是换行 当前为 SP 或 HT 时构成折行
	// 已写出的换行被改写为单个空格
	if ch == ' ' || ch == '\t' {
		*head++
		l.hdr.B[*tail-1] = ' '
		*last = ' '
	}
	l.state = stateCopy
}

func (l *lexer) stepReachedContent(tail, head *int) {
	// header 之后多收的字节全部归属 content
	l.cnt.B = append(l.cnt.B, l.hdr.B[*head:]...)
	l.hdr.B = l.hdr.B[:*tail]
	*head = *tail
}

// fetchContent 接收直到 content 缓冲达到 length 字节
//
// 接收失败时使既有内容失效并返回 false
func (l *lexer) fetchContent(length int) bool {
	if l.state != stateReachedContent {
		return false
	}

	for len(l.cnt.B) < length {
		chunk, err := l.dev.Receive(length - len(l.cnt.B))
		if err != nil {
			l.recvErr = err
			break
		}
		l.gotAny = true
		l.cnt.B = append(l.cnt.B, chunk...)
	}

	l.contentOK = len(l.cnt.B) == length
	return l.contentOK
}

func (l *lexer) content() []byte {
	if !l.contentOK {
		return nil
	}
	return l.cnt.B
}

// get 返回下一个 header 字节 0..255 读尽时返回 -1
func (l *lexer) get() int {
	if l.idx < len(l.hdr.B) {
		b := l.hdr.B[l.idx]
		l.idx++
		return int(b)
	}
	return -1
}

func (l *lexer) prevIndex() int {
	return l.idx - 1
}

func (l *lexer) index() int {
	return l.idx
}

func (l *lexer) setIndex(idx int) {
	if idx <= len(l.hdr.B) {
		l.idx = idx
	}
}

// data 返回自 idx 起的 header 原始字节 允许原地改写
func (l *lexer) data(idx int) []byte {
	if idx < 0 || idx > len(l.hdr.B) {
		return nil
	}
	return l.hdr.B[idx:]
}

// failedIO 接收是否因设备故障而非流正常结束失败
func (l *lexer) failedIO() bool {
	return l.recvErr != nil && !errors.Is(l.recvErr, io.EOF)
}

// cleanClosed 流在未收到任何字节前正常关闭
func (l *lexer) cleanClosed() bool {
	return !l.gotAny && errors.Is(l.recvErr, io.EOF)
}
