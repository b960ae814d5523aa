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

// Package device 定义库所消费的双向字节流契约
//
// 库本身不做监听与连接管理 调用方负责建立连接并逐个移交
package device

import (
	"io"
	"net"
	"time"
)

// Device 双向字节流
//
// Receive 返回至多 max 字节 保证至少返回一个字节 否则返回错误
// 流正常结束时错误为 io.EOF 返回的切片在下一次 Receive 前有效
// Send 要求全量写入 不存在部分写入成功的中间态
type Device interface {
	Receive(max int) ([]byte, error)
	Send(p []byte) error
	SetLingeringTimeout(d time.Duration) error
	Close() error
}

// Conn 将 net.Conn 适配为 Device
type Conn struct {
	conn net.Conn
	buf  []byte
}

// NewConn 创建并返回 *Conn 实例
func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn}
}

// Receive 实现 Device 接口
func (c *Conn) Receive(max int) ([]byte, error) {
	if max <= 0 {
		return nil, io.ErrShortBuffer
	}
	if cap(c.buf) < max {
		c.buf = make([]byte, max)
	}
	n, err := c.conn.Read(c.buf[:max])
	if n > 0 {
		return c.buf[:n], nil
	}
	if err == nil {
		err = io.EOF
	}
	return nil, err
}

// Send 实现 Device 接口
//
// net.Conn 的 Write 语义已经保证 err == nil 时全量写入
func (c *Conn) Send(p []byte) error {
	_, err := c.conn.Write(p)
	return err
}

// SetLingeringTimeout 实现 Device 接口 仅对 TCP 连接生效
func (c *Conn) SetLingeringTimeout(d time.Duration) error {
	if tc, ok := c.conn.(*net.TCPConn); ok {
		return tc.SetLinger(int(d / time.Second))
	}
	return nil
}

// Close 实现 Device 接口
func (c *Conn) Close() error {
	return c.conn.Close()
}
