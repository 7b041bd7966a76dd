/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"net/http"
	"time"

	"nexbank-ledger-go/internal/ledger"
	"nexbank-ledger-go/internal/store"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server holds the HTTP surface over the ledger engine and store.
type Server struct {
	engine *ledger.Engine
	store  store.LedgerStore
}

func NewServer(engine *ledger.Engine, st store.LedgerStore) *Server {
	return &Server{engine: engine, store: st}
}

// Router wires all routes. Every mutating endpoint goes through the engine;
// read endpoints hit the store directly.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	r.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{reference}", s.handleGetTransaction).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{reference}/reverse", s.handleReverseTransaction).Methods(http.MethodPost)

	r.HandleFunc("/payments", s.handleCreatePayment).Methods(http.MethodPost)

	r.HandleFunc("/onboarding", s.handleOnboarding).Methods(http.MethodPost)
	r.HandleFunc("/accounts", s.handleListAccounts).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{id}", s.handleCloseAccount).Methods(http.MethodDelete)

	r.HandleFunc("/cards", s.handleIssueCard).Methods(http.MethodPost)
	r.HandleFunc("/cards", s.handleListCards).Methods(http.MethodGet)

	r.HandleFunc("/notifications", s.handleListNotifications).Methods(http.MethodGet)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		zap.L().Debug("Request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}
