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

// Package server 运维用的旁路 HTTP 服务
//
// 暴露指标 路由表快照与 pprof 与 RESTful 数据面完全隔离
package server

import (
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"

	"github.com/packetd/restd/common"
	"github.com/packetd/restd/confengine"
	"github.com/packetd/restd/demux"
	"github.com/packetd/restd/logger"
)

type Config struct {
	Enabled        bool          `config:"enabled"`
	Address        string        `config:"address"`
	Pprof          bool          `config:"pprof"`
	Timeout        time.Duration `config:"timeout"`
	MaxConnections int           `config:"maxConnections"`
}

type Server struct {
	config Config
	router *mux.Router
	server *http.Server
	dm     *demux.Demux
}

// New 创建并返回 Server 实例
//
// 当 .Enabled 为 false 时会返回空指针 调用方需先判断
func New(conf *confengine.Config, dm *demux.Demux) (*Server, error) {
	var config Config
	if err := conf.UnpackChild("server", &config); err != nil {
		return nil, err
	}
	if !config.Enabled {
		return nil, nil
	}

	router := mux.NewRouter()
	s := &Server{
		config: config,
		router: router,
		dm:     dm,
		server: &http.Server{
			Handler:      router,
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
		},
	}

	s.RegisterGetRoute("/metrics", promhttp.Handler().ServeHTTP)
	s.RegisterGetRoute("/routes", s.routesRoute)
	s.RegisterGetRoute("/version", s.versionRoute)
	if config.Pprof {
		s.registerPprofRoutes()
	}
	return s, nil
}

func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	if s.config.MaxConnections > 0 {
		l = netutil.LimitListener(l, s.config.MaxConnections)
	}
	logger.Infof("server listening on %s", s.config.Address)
	return s.server.Serve(l)
}

func (s *Server) Close() error {
	return s.server.Close()
}

func (s *Server) RegisterGetRoute(path string, f http.HandlerFunc) {
	s.router.Methods(http.MethodGet).Path(path).HandlerFunc(f)
}

// routesRoute 输出 demux 当前的路由表快照
func (s *Server) routesRoute(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.dm.Routes()); err != nil {
		logger.Warnf("encode routes failed: %v", err)
	}
}

func (s *Server) versionRoute(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(common.GetBuildInfo()); err != nil {
		logger.Warnf("encode buildinfo failed: %v", err)
	}
}

func (s *Server) registerPprofRoutes() {
	s.RegisterGetRoute("/debug/pprof/cmdline", pprof.Cmdline)
	s.RegisterGetRoute("/debug/pprof/profile", pprof.Profile)
	s.RegisterGetRoute("/debug/pprof/symbol", pprof.Symbol)
	s.RegisterGetRoute("/debug/pprof/trace", pprof.Trace)
	s.RegisterGetRoute("/debug/pprof/{other}", pprof.Index)
}
