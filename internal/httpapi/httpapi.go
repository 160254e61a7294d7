// Package httpapi exposes the query engine over HTTP: a synchronous
// POST /api/query endpoint and a GET /api/ws WebSocket upgrade for
// live cache-invalidation subscriptions.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/colsql/queryserver/internal/cache"
	"github.com/colsql/queryserver/internal/catalog"
	"github.com/colsql/queryserver/internal/config"
	"github.com/colsql/queryserver/internal/executor"
	"github.com/colsql/queryserver/internal/live"
	"github.com/colsql/queryserver/internal/logutil"
	"github.com/colsql/queryserver/internal/parser"
	"github.com/colsql/queryserver/internal/queryerr"
	"github.com/colsql/queryserver/internal/table"
	"github.com/colsql/queryserver/internal/validator"
	"github.com/colsql/queryserver/internal/value"
)

// Engine bundles everything a query needs to run end to end: check
// cache, parse, validate, execute, write cache, notify subscribers.
type Engine struct {
	Store   *config.Store
	Cat     catalog.Catalog
	Cache   *cache.Store
	Live    *live.Registry
	Log     *zap.Logger
	Upgrade websocket.Upgrader
}

// NewRouter wires the HTTP surface onto a chi router.
func NewRouter(eng *Engine) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/query", eng.handleQuery)
	r.Get("/api/ws", eng.handleWS)
	return r
}

type queryResponse struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	qe, ok := err.(*queryerr.QueryError)
	if !ok {
		qe = queryerr.Wrap(queryerr.NotSupported, err, "internal error")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(errorResponse{Kind: string(qe.Kind), Message: qe.Message})
}

// handleQuery runs the full pipeline over a raw SQL body: cache check,
// parse, validate, execute, cache write.
func (eng *Engine) handleQuery(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := eng.Run(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toResponse(result))
}

// Run executes sqlText through cache -> parse -> validate -> execute ->
// cache write, notifying any live subscribers on a cache overwrite.
func (eng *Engine) Run(ctx context.Context, sqlText string) (*table.Table, error) {
	if cached, ok, err := eng.Cache.Get(ctx, sqlText); err == nil && ok {
		return cached, nil
	}

	p, err := parser.Parse(sqlText)
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(ctx, p, eng.Cat); err != nil {
		return nil, err
	}

	cfg := eng.Store.Get()
	result, err := executor.Execute(ctx, p, cfg.DataDir, cfg, table.Load)
	if err != nil {
		return nil, err
	}
	eng.Log.Info("query executed", logutil.Values(
		zap.Strings("tables", p.SourceTables),
		zap.Int("rows", result.RowCount),
	))

	existed, err := eng.Cache.Put(ctx, sqlText, result)
	if err != nil {
		eng.Log.Warn("cache write failed", logutil.Values(
			zap.String("key", cache.Key(sqlText)),
			zap.Error(err),
		))
	} else if existed {
		eng.Live.Invalidate(cache.Key(sqlText))
	}
	return result, nil
}

func toResponse(t *table.Table) queryResponse {
	resp := queryResponse{Columns: t.ColumnNames(), Rows: make([][]interface{}, t.RowCount)}
	for i := 0; i < t.RowCount; i++ {
		row := t.Row(i)
		out := make([]interface{}, len(row))
		for c, v := range row {
			switch {
			case v.IsString():
				out[c] = v.String()
			case v.Kind() == value.Float:
				out[c] = v.Float()
			default:
				out[c] = v.Int()
			}
		}
		resp.Rows[i] = out
	}
	return resp
}

func readBody(r *http.Request) (string, error) {
	defer r.Body.Close()
	buf, err := io.ReadAll(r.Body)
	if err != nil {
		return "", queryerr.Wrap(queryerr.ParseError, err, "failed to read request body")
	}
	if len(buf) == 0 {
		return "", queryerr.New(queryerr.ParseError, "empty request body")
	}
	return string(buf), nil
}

// handleWS upgrades to a WebSocket and speaks the subscribe/unsubscribe
// protocol described in the engine's interface spec.
func (eng *Engine) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := eng.Upgrade.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() {
		eng.Live.DropConn(conn)
		conn.Close()
	}()

	for {
		var msg live.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "subscribe":
			eng.subscribe(conn, msg.SQL)
		case "unsubscribe":
			eng.Live.Unsubscribe(msg.ID)
		}
	}
}

func (eng *Engine) subscribe(conn *websocket.Conn, sqlText string) {
	ctx := context.Background()
	p, err := parser.Parse(sqlText)
	if err == nil {
		err = validator.Validate(ctx, p, eng.Cat)
	}
	if err != nil {
		qe, ok := err.(*queryerr.QueryError)
		msg := live.Message{Type: "error"}
		if ok {
			msg.Error = qe.Message
		} else {
			msg.Error = err.Error()
		}
		conn.WriteJSON(msg)
		return
	}

	id := eng.Live.Subscribe(conn, cache.Key(sqlText))
	conn.WriteJSON(live.Message{Type: "subscribed", ID: id, Tables: p.SourceTables})
}
