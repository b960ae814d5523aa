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

// Package httpdate 解析 HTTP 协议沿用的三种历史日期格式
//
//	RFC 1123: Sun, 06 Nov 1994 08:49:37 GMT
//	RFC 850:  Sunday, 06-Nov-94 08:49:37 GMT
//	asctime:  Sun Nov  6 08:49:37 1994
//
// 输出统一为 Unix epoch 秒 解析失败返回 -1
// 闰年判定只使用 `year % 4 == 0` 该规则仅在 1970..2099 区间内成立
// 超出该区间的日期一律视为非法
package httpdate

import (
	"time"

	"github.com/packetd/restd/internal/trie"
)

type weekdayValue struct {
	day  int8
	long bool
}

var weekdays = func() *trie.Trie[weekdayValue] {
	t := trie.New[weekdayValue](true)
	names := []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}
	longs := []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	for i, s := range names {
		t.Insert(s, weekdayValue{day: int8(i)})
	}
	for i, s := range longs {
		t.Insert(s, weekdayValue{day: int8(i), long: true})
	}
	return t
}()

var months = func() *trie.Trie[int] {
	t := trie.New[int](true)
	names := []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
	for i, s := range names {
		t.Insert(s, i+1)
	}
	return t
}()

const (
	epochStartYear = 1970
	lastValidYear  = 2099
)

type cursor struct {
	b []byte
	i int
}

func (c *cursor) skipWS() {
	for c.i < len(c.b) && (c.b[c.i] == ' ' || c.b[c.i] == '\t') {
		c.i++
	}
}

func (c *cursor) skipOne() {
	if c.i < len(c.b) {
		c.i++
	}
}

func (c *cursor) peek() byte {
	if c.i < len(c.b) {
		return c.b[c.i]
	}
	return 0
}

func (c *cursor) rest() []byte {
	return c.b[c.i:]
}

// parseUint 十进制无符号数 无数字或溢出时返回 -1
func (c *cursor) parseUint() int {
	begin := c.i
	n := 0
	for c.i < len(c.b) && c.b[c.i] >= '0' && c.b[c.i] <= '9' {
		n = n*10 + int(c.b[c.i]-'0')
		if n > 1<<30 {
			return -1
		}
		c.i++
	}
	if c.i == begin {
		return -1
	}
	return n
}

func (c *cursor) parseMonth() int {
	r := months.Find(c.rest())
	c.i += r.Used
	if r.Used == 0 {
		return -1
	}
	return r.Value
}

// parseTime 冒号分隔的时分秒 返回当天的秒数 非法时返回 -1
func (c *cursor) parseTime() int {
	hour := c.parseUint()
	c.skipWS()
	if hour < 0 || hour > 23 || c.peek() != ':' {
		return -1
	}
	c.skipOne()
	c.skipWS()

	minute := c.parseUint()
	c.skipWS()
	if minute < 0 || minute > 59 || c.peek() != ':' {
		return -1
	}
	c.skipOne()
	c.skipWS()

	second := c.parseUint()
	if second < 0 || second > 59 {
		return -1
	}
	return (hour*60+minute)*60 + second
}

// parseGMT 大小写不敏感地要求字面的 GMT
func (c *cursor) parseGMT() bool {
	r := c.rest()
	if len(r) < 3 {
		return false
	}
	return (r[0]|0x20) == 'g' && (r[1]|0x20) == 'm' && (r[2]|0x20) == 't'
}

func isLeapyear(year int) bool {
	// 仅在 1970..2099 内正确 世纪闰年规则在此区间无需考虑
	return year%4 == 0
}

var daysBeforeMonth = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}
var daysPerMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// secondsSinceEpoch 合法区间内的日期换算 非法输入返回 -1
func secondsSinceEpoch(secondOfDay, day, month, year int) int64 {
	if secondOfDay < 0 || secondOfDay >= 86400 {
		return -1
	}
	if year < epochStartYear || year > lastValidYear || month < 1 || month > 12 || day < 1 {
		return -1
	}

	maxDay := daysPerMonth[month-1]
	if month == 2 && isLeapyear(year) {
		maxDay++
	}
	if day > maxDay {
		return -1
	}

	dayOfYear := daysBeforeMonth[month-1] + day - 1
	if month > 2 && isLeapyear(year) {
		dayOfYear++
	}

	// 1972 年是 epoch 后第一个闰年 因此从 +1 起算闰日
	yearsSince := year - epochStartYear
	leapDays := (yearsSince + 1) / 4
	days := yearsSince*365 + leapDays + dayOfYear
	return int64(days)*86400 + int64(secondOfDay)
}

// Sun, 06 Nov 1994 08:49:37 GMT
func parseRFC1123(c *cursor) int64 {
	if c.peek() != ',' {
		return -1
	}
	c.skipOne()
	c.skipWS()
	day := c.parseUint()

	c.skipWS()
	month := c.parseMonth()

	c.skipWS()
	year := c.parseUint()

	c.skipWS()
	secondOfDay := c.parseTime()
	if secondOfDay < 0 {
		return -1
	}

	c.skipWS()
	if !c.parseGMT() {
		return -1
	}
	return secondsSinceEpoch(secondOfDay, day, month, year)
}

// Sunday, 06-Nov-94 08:49:37 GMT
func parseRFC850(c *cursor) int64 {
	c.skipWS()
	if c.peek() != ',' {
		return -1
	}
	c.skipOne()
	c.skipWS()
	day := c.parseUint()

	if c.peek() != '-' {
		return -1
	}
	c.skipOne()
	month := c.parseMonth()

	if c.peek() != '-' {
		return -1
	}
	c.skipOne()

	// RFC 850 使用两位年份 映射至 1900..1999
	year := c.parseUint()
	if year < 0 || year > 99 {
		return -1
	}
	year += 1900

	c.skipWS()
	secondOfDay := c.parseTime()
	if secondOfDay < 0 {
		return -1
	}

	c.skipWS()
	if !c.parseGMT() {
		return -1
	}
	return secondsSinceEpoch(secondOfDay, day, month, year)
}

// Sun Nov  6 08:49:37 1994
func parseAsctime(c *cursor) int64 {
	c.skipWS()
	month := c.parseMonth()

	c.skipOne()
	c.skipWS()
	day := c.parseUint()

	c.skipOne()
	c.skipWS()
	secondOfDay := c.parseTime()
	if secondOfDay < 0 {
		return -1
	}

	c.skipOne()
	c.skipWS()
	year := c.parseUint()
	return secondsSinceEpoch(secondOfDay, day, month, year)
}

// Parse 按首个 token 分派三种格式
//
// 长星期名 => RFC 850 短星期名加空白 => asctime 其余 => RFC 1123
func Parse(b []byte) int64 {
	c := &cursor{b: b}
	c.skipWS()

	r := weekdays.Find(c.rest())
	if r.Used == 0 {
		return -1
	}
	c.i += r.Used

	switch {
	case r.Value.long:
		return parseRFC850(c)
	case c.peek() == ' ' || c.peek() == '\t':
		return parseAsctime(c)
	default:
		return parseRFC1123(c)
	}
}

const rfc1123Layout = "Mon, 02 Jan 2006 15:04:05 GMT"

// Format 以 RFC 1123 格式输出 用于响应的 Date 头部
func Format(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format(rfc1123Layout)
}
