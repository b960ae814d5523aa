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

package mediatype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterUnregister(t *testing.T) {
	r := NewRegistry()

	id := r.RegisterType("example")
	assert.NotEqual(t, TypeInvalid, id)
	assert.Equal(t, TypeInvalid, r.RegisterType("example"))
	assert.Equal(t, TypeInvalid, r.RegisterType("Example")) // 大小写不敏感
	assert.Equal(t, "example", r.TypeName(id))

	sub := r.RegisterSubtype("thing+json")
	assert.NotEqual(t, SubtypeInvalid, sub)

	pair := Pair{Type: id, Subtype: sub}
	r.Acquire(pair)
	assert.False(t, r.UnregisterType(id))
	assert.False(t, r.UnregisterSubtype(sub))

	r.Release(pair)
	assert.True(t, r.UnregisterType(id))
	assert.False(t, r.UnregisterType(id))
	assert.True(t, r.UnregisterSubtype(sub))

	// 保留标识永远不可注销
	assert.False(t, r.UnregisterType(TypeWildcard))
	assert.False(t, r.UnregisterSubtype(SubtypeInvalid))
}

func TestParse(t *testing.T) {
	r := NewRegistry()
	textPlain, ok := r.PairOf("text/plain")
	assert.True(t, ok)

	tests := []struct {
		name    string
		input   string
		pair    Pair
		quality Quality
		failed  bool
	}{
		{
			name:    "plain",
			input:   "text/plain",
			pair:    textPlain,
			quality: 10,
		},
		{
			name:    "case insensitive with charset",
			input:   "Text/Plain; charset=utf-8",
			pair:    textPlain,
			quality: 10,
		},
		{
			name:    "quality",
			input:   "text/plain;q=0.5",
			pair:    textPlain,
			quality: 5,
		},
		{
			name:    "quality one",
			input:   "text/plain; q=1.0",
			pair:    textPlain,
			quality: 10,
		},
		{
			name:    "wildcard pair",
			input:   "*/*",
			pair:    WildcardPair,
			quality: 10,
		},
		{
			name:    "subtype wildcard",
			input:   "text/*;q=0.3",
			pair:    Pair{Type: textPlain.Type, Subtype: SubtypeWildcard},
			quality: 3,
		},
		{
			name:   "missing slash",
			input:  "textplain",
			failed: true,
		},
		{
			name:   "empty subtype",
			input:  "text/",
			failed: true,
		},
		{
			name:    "unregistered type stays invalid",
			input:   "banana/plain",
			pair:    Pair{Type: TypeInvalid, Subtype: textPlain.Subtype},
			quality: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, quality, n := r.Parse([]byte(tt.input))
			if tt.failed {
				assert.Equal(t, 0, n)
				return
			}
			assert.NotZero(t, n)
			assert.Equal(t, tt.pair, pair)
			assert.Equal(t, tt.quality, quality)
		})
	}
}

func TestMatches(t *testing.T) {
	r := NewRegistry()
	textPlain, _ := r.PairOf("text/plain")
	appJSON, _ := r.PairOf("application/json")
	textAny := Pair{Type: textPlain.Type, Subtype: SubtypeWildcard}

	assert.True(t, textPlain.Matches(textPlain))
	assert.True(t, WildcardPair.Matches(textPlain))
	assert.True(t, textPlain.Matches(WildcardPair))
	assert.True(t, textAny.Matches(textPlain))
	assert.False(t, textAny.Matches(appJSON))
	assert.False(t, textPlain.Matches(appJSON))
	assert.False(t, InvalidPair.Matches(textPlain))
}
