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

package common

const (
	// App 应用程序名称
	App = "restd"

	// Version 应用程序版本
	Version = "v0.1.0"

	// ReceiveBlockSize 单次从 Device 中读取的最大字节数
	//
	// Header 的接收以该长度为单位分块进行 普通请求的 Header 一般在一个分块内完成
	// 更大的分块会放大每条连接的驻留内存 这里取了一个折中值
	ReceiveBlockSize = 4000

	// MaxContentLength Content-Length 允许的最大值
	MaxContentLength = 1<<31 - 1
)
