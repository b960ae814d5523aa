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

package response

import (
	"crypto/md5"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/packetd/restd/common"
	"github.com/packetd/restd/device"
	"github.com/packetd/restd/httpdate"
	"github.com/packetd/restd/internal/bufpool"
	"github.com/packetd/restd/mediatype"
	"github.com/packetd/restd/request"
)

// StatusText 返回状态码对应的原因短语
func StatusText(code int) string {
	if s, ok := statusTexts[code]; ok {
		return s
	}
	return "Unknown"
}

var statusTexts = map[int]string{
	100: "Continue",
	200: "OK",
	201: "Created",
	202: "Accepted",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	408: "Request Timeout",
	410: "Gone",
	411: "Length Required",
	415: "Unsupported Media Type",
	417: "Expectation Failed",
	500: "Internal Server Error",
	501: "Not Implemented",
	503: "Service Unavailable",
	505: "HTTP Version Not Supported",
}

// Date Content-Length Content-MD5 由编码器计算 其余保留名各有专属 setter
var reservedHeaders = map[string]struct{}{
	"date":             {},
	"content-length":   {},
	"content-md5":      {},
	"content-type":     {},
	"content-location": {},
	"location":         {},
	"retry-after":      {},
	"server":           {},
}

type field struct {
	name  string
	value string
}

// Response 响应构造器
//
// setter 只记录状态 Serialize 负责编码并一次性写入 Device
type Response struct {
	dev device.Device
	reg *mediatype.Registry

	status          int
	version         request.Version
	headers         []field
	body            []byte
	contentType     mediatype.Pair
	hasContentType  bool
	contentLocation string
	location        string
	retryAfter      int64
	withMD5         bool
	fingerprint     bool
}

// New 创建并返回绑定在 dev 上的 *Response 实例
func New(dev device.Device, reg *mediatype.Registry) *Response {
	return &Response{
		dev:     dev,
		reg:     reg,
		status:  200,
		version: request.Version11,
	}
}

// SetStatus 设置状态码
func (r *Response) SetStatus(code int) {
	r.status = code
}

// Status 返回当前设置的状态码
func (r *Response) Status() int {
	return r.status
}

// SetVersion 设置状态行使用的协议版本
func (r *Response) SetVersion(v request.Version) {
	r.version = v
}

// SetHeader 追加一个头部 保留名返回 false
func (r *Response) SetHeader(name, value string) bool {
	if _, ok := reservedHeaders[strings.ToLower(name)]; ok {
		return false
	}
	r.headers = append(r.headers, field{name: name, value: value})
	return true
}

// SetContentType 设置响应的媒体类型 未注册的标识对返回 false
func (r *Response) SetContentType(p mediatype.Pair) bool {
	if r.reg.PairName(p) == "" {
		return false
	}
	r.contentType = p
	r.hasContentType = true
	return true
}

// SetBody 设置响应体 Content-Length 由编码器按其长度计算
func (r *Response) SetBody(p []byte) {
	r.body = p
}

// SetContentLocation 设置 Content-Location 头部
func (r *Response) SetContentLocation(s string) {
	r.contentLocation = s
}

// SetLocation 设置 Location 头部
func (r *Response) SetLocation(s string) {
	r.location = s
}

// SetRetryAfter 设置 Retry-After 绝对时间戳 0 代表清除
func (r *Response) SetRetryAfter(epoch int64) {
	r.retryAfter = epoch
}

// WithContentMD5 序列化时是否携带对 body 的 Content-MD5 摘要
func (r *Response) WithContentMD5(enabled bool) {
	r.withMD5 = enabled
}

// WithServerFingerprint 是否携带 Server 头部 默认关闭
func (r *Response) WithServerFingerprint(enabled bool) {
	r.fingerprint = enabled
}

func appendHeader(b []byte, name, value string) []byte {
	b = append(b, name...)
	b = append(b, ':', ' ')
	b = append(b, value...)
	b = append(b, '\r', '\n')
	return b
}

// Serialize 编码整个响应并写入 Device
//
// 输出顺序为 状态行 引擎头部 专属头部 自定义头部 空行 body
// Date 取序列化时刻 发送失败返回 false
func (r *Response) Serialize() bool {
	buf := bufpool.Acquire()
	defer bufpool.Release(buf)

	b := buf.B
	b = append(b, r.version.String()...)
	b = append(b, ' ')
	b = strconv.AppendInt(b, int64(r.status), 10)
	b = append(b, ' ')
	b = append(b, StatusText(r.status)...)
	b = append(b, '\r', '\n')

	b = appendHeader(b, "Date", httpdate.Format(time.Now().Unix()))
	b = appendHeader(b, "Content-Length", strconv.Itoa(len(r.body)))
	if r.withMD5 {
		sum := md5.Sum(r.body)
		b = appendHeader(b, "Content-MD5", base64.StdEncoding.EncodeToString(sum[:]))
	}
	if r.fingerprint {
		b = appendHeader(b, "Server", common.Fingerprint())
	}
	if r.hasContentType {
		b = appendHeader(b, "Content-Type", r.reg.PairName(r.contentType))
	}
	if r.contentLocation != "" {
		b = appendHeader(b, "Content-Location", r.contentLocation)
	}
	if r.location != "" {
		b = appendHeader(b, "Location", r.location)
	}
	if r.retryAfter > 0 {
		b = appendHeader(b, "Retry-After", httpdate.Format(r.retryAfter))
	}
	for _, f := range r.headers {
		b = appendHeader(b, f.name, f.value)
	}
	b = append(b, '\r', '\n')
	b = append(b, r.body...)
	buf.B = b

	return r.dev.Send(buf.B) == nil
}
