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

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/restd/confengine"
	"github.com/packetd/restd/demux"
	"github.com/packetd/restd/mediatype"
	"github.com/packetd/restd/request"
	"github.com/packetd/restd/response"
)

func TestNewDisabled(t *testing.T) {
	conf, err := confengine.LoadContent([]byte("server:\n  enabled: false\n"))
	require.NoError(t, err)

	s, err := New(conf, demux.New())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestRoutesRoute(t *testing.T) {
	conf, err := confengine.LoadContent([]byte("server:\n  enabled: true\n  address: localhost:0\n"))
	require.NoError(t, err)

	dm := demux.New()
	textPlain, _ := dm.Registry().PairOf("text/plain")
	h, err := dm.Connect(demux.HandlerID{
		Path:        "/things",
		Method:      request.MethodGet,
		ContentType: mediatype.WildcardPair,
		AcceptType:  textPlain,
	}, func(*request.Request, *response.Response) {})
	require.NoError(t, err)
	defer h.Close()

	s, err := New(conf, dm)
	require.NoError(t, err)
	require.NotNil(t, s)

	req := httptest.NewRequest(http.MethodGet, "/routes", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var routes []demux.Route
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &routes))
	require.Len(t, routes, 1)
	assert.Equal(t, "/things", routes[0].Path)
	assert.Equal(t, "GET", routes[0].Method)
	assert.Equal(t, "*/*", routes[0].ContentType)
	assert.Equal(t, "text/plain", routes[0].AcceptType)
	assert.True(t, routes[0].Enabled)
}

func TestVersionRoute(t *testing.T) {
	conf, err := confengine.LoadContent([]byte("server:\n  enabled: true\n  address: localhost:0\n"))
	require.NoError(t, err)

	s, err := New(conf, demux.New())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}
