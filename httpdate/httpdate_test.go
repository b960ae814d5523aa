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

package httpdate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		epoch int64
	}{
		{
			name:  "rfc1123",
			input: "Sun, 06 Nov 1994 08:49:37 GMT",
			epoch: 784111777,
		},
		{
			name:  "rfc850",
			input: "Sunday, 06-Nov-94 08:49:37 GMT",
			epoch: 784111777,
		},
		{
			name:  "asctime",
			input: "Sun Nov  6 08:49:37 1994",
			epoch: 784111777,
		},
		{
			name:  "epoch start",
			input: "Thu, 01 Jan 1970 00:00:00 GMT",
			epoch: 0,
		},
		{
			name:  "leap day",
			input: "Tue, 29 Feb 2000 00:00:00 GMT",
			epoch: 951782400,
		},
		{
			name:  "after leap day",
			input: "Wed, 01 Mar 2000 00:00:00 GMT",
			epoch: 951868800,
		},
		{
			name:  "lowercase tokens",
			input: "sun, 06 nov 1994 08:49:37 gmt",
			epoch: 784111777,
		},
		{
			name:  "missing gmt",
			input: "Sun, 06 Nov 1994 08:49:37",
			epoch: -1,
		},
		{
			name:  "invalid weekday",
			input: "Xxx, 06 Nov 1994 08:49:37 GMT",
			epoch: -1,
		},
		{
			name:  "invalid month",
			input: "Sun, 06 Foo 1994 08:49:37 GMT",
			epoch: -1,
		},
		{
			name:  "no leap day off a leapyear",
			input: "Mon, 29 Feb 1999 00:00:00 GMT",
			epoch: -1,
		},
		{
			name:  "hour out of range",
			input: "Sun, 06 Nov 1994 24:00:00 GMT",
			epoch: -1,
		},
		{
			name:  "year before epoch",
			input: "Wed, 06 Nov 1963 08:49:37 GMT",
			epoch: -1,
		},
		{
			name:  "year after admitted range",
			input: "Fri, 06 Nov 2111 08:49:37 GMT",
			epoch: -1,
		},
		{
			name:  "empty",
			input: "",
			epoch: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.epoch, Parse([]byte(tt.input)))
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "Sun, 06 Nov 1994 08:49:37 GMT", Format(784111777))
	assert.Equal(t, "Thu, 01 Jan 1970 00:00:00 GMT", Format(0))
}
